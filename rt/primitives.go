package rt

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/value"
)

type primitive struct {
	name  string
	arity int
	fn    Func
}

var primitives = []primitive{
	{name: "caml_create_bytes", arity: 1, fn: createBytesPrimitive},
	{name: "caml_string_concat", arity: 2, fn: stringConcatPrimitive},
	{name: "caml_blit_bytes", arity: 5, fn: blitBytesPrimitive},
	{name: "caml_ml_string_length", arity: 1, fn: stringLengthPrimitive},
	{name: "caml_ml_bytes_length", arity: 1, fn: stringLengthPrimitive},
	{name: "caml_string_unsafe_get", arity: 2, fn: unsafeGetPrimitive},
	{name: "caml_bytes_unsafe_set", arity: 3, fn: unsafeSetPrimitive},
	{name: "caml_string_of_bytes", arity: 1, fn: stringOfBytesPrimitive},
	{name: "caml_bytes_of_string", arity: 1, fn: bytesOfStringPrimitive},
	{name: "caml_putc", arity: 1, fn: putcPrimitive},
	{name: "caml_getc", arity: 1, fn: getcPrimitive},
	{name: "caml_raise", arity: 1, fn: raisePrimitive},
	{name: "caml_register_global", arity: 3, fn: registerGlobalPrimitive},
}

func (r *Runtime) registerPrimitives() {
	for _, prim := range primitives {
		r.registerFunc(prim.name, prim.arity, checkArity(prim))
	}
}

func checkArity(prim primitive) Func {
	return func(r *Runtime, args []value.Value) (value.Value, error) {
		if len(args) != prim.arity {
			return value.Unit, errors.Wrapf(ErrArity, "%s takes %d arguments, but received %d", prim.name, prim.arity, len(args))
		}

		return prim.fn(r, args)
	}
}

// Primitive returns a fresh closure over the primitive registered under name, taking as
// many arguments as the primitive does
func (r *Runtime) Primitive(name string) (value.Value, error) {
	id, ok := r.LookupFunc(name)
	if !ok {
		return value.Unit, errors.Wrapf(ErrNotCallable, "no primitive is registered as %q", name)
	}

	entry, err := r.funcEntry(id)
	if err != nil {
		return value.Unit, err
	}

	if entry.arity < 0 {
		return value.Unit, errors.Newf("%q was registered without an arity and is not a primitive", name)
	}

	return r.MakeClosure(id, entry.arity, 0)
}

func createBytesPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	n, err := intArg(args[0], "length")
	if err != nil {
		return value.Unit, err
	}

	return r.CreateBytes(n)
}

func stringConcatPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	return r.StringConcat(args[0], args[1])
}

func blitBytesPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	srcPos, err := intArg(args[1], "source position")
	if err != nil {
		return value.Unit, err
	}
	dstPos, err := intArg(args[3], "destination position")
	if err != nil {
		return value.Unit, err
	}
	n, err := intArg(args[4], "length")
	if err != nil {
		return value.Unit, err
	}

	return value.Unit, r.Blit(args[0], srcPos, args[2], dstPos, n)
}

func stringLengthPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	length, err := r.StringLength(args[0])
	if err != nil {
		return value.Unit, err
	}

	return value.FromInt(int64(length)), nil
}

func unsafeGetPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	i, err := intArg(args[1], "index")
	if err != nil {
		return value.Unit, err
	}

	c, err := r.UnsafeGet(args[0], i)
	if err != nil {
		return value.Unit, err
	}

	return value.FromInt(int64(c)), nil
}

func unsafeSetPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	i, err := intArg(args[1], "index")
	if err != nil {
		return value.Unit, err
	}
	c, err := intArg(args[2], "character")
	if err != nil {
		return value.Unit, err
	}

	return value.Unit, r.UnsafeSet(args[0], i, byte(c))
}

func stringOfBytesPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	return r.StringOfBytes(args[0])
}

func bytesOfStringPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	return r.BytesOfString(args[0])
}

func raisePrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	return value.Unit, r.Raise(args[0])
}

func registerGlobalPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	slot, err := intArg(args[0], "global slot")
	if err != nil {
		return value.Unit, err
	}

	name, err := r.GoString(args[2])
	if err != nil {
		return value.Unit, err
	}

	return value.Unit, r.RegisterGlobal(slot, args[1], name)
}
