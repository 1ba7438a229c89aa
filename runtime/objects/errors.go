package objects

import "errors"

var (
	// ErrInvalidRegistration is returned for a null handle or nil object.
	ErrInvalidRegistration = errors.New("invalid object registration")

	// ErrAlreadyRegistered is returned when the handle is taken. The existing
	// registration is left untouched.
	ErrAlreadyRegistered = errors.New("object already registered")

	// ErrNotRegistered is returned when no object owns the handle.
	ErrNotRegistered = errors.New("object not registered")

	// ErrUnknownMember is returned when the binding has no member by that name.
	ErrUnknownMember = errors.New("unknown member")

	// ErrArity is returned when a member is called with the wrong number of
	// arguments.
	ErrArity = errors.New("wrong number of arguments")

	// ErrArgType is returned when an argument cannot be converted to the
	// member's parameter type.
	ErrArgType = errors.New("argument type mismatch")
)
