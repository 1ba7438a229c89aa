// Package hosting wraps the handles returned by a managed runtime in
// long-lived metadata records.
//
// A Host is the explicit context for one binding: it owns the operation
// table, the TypeCache that interns Type records and the object registry
// used for calls coming back from the managed side. Records resolve their
// names and related types lazily, exactly once, through the cache, so the
// same managed handle always yields the same *Type.
package hosting
