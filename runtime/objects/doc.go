// Package objects routes calls initiated by the managed runtime back into
// native Go values.
//
// A native value becomes reachable from the managed side by wrapping it in an
// Object under the handle of its managed peer. The Registry maps that handle
// to the Object, and the Object's Proxy resolves a member name to a Go
// function through a Binding built once per native type:
//
//	var counterBinding = objects.NewBinding[Counter]("Counter")
//
//	func init() {
//		objects.BindMethod(counterBinding, "Increment", (*Counter).Increment)
//		objects.BindField(counterBinding, "Value", func(c *Counter) *int32 { return &c.Value })
//	}
//
//	obj, err := objects.NewObject(registry, handle, counter, counterBinding)
//	defer obj.Close()
//
// Nothing raised by a bound member crosses the proxy: panics and errors are
// logged and converted to the zero value of the requested result type.
package objects
