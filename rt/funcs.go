package rt

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/value"
)

// FuncID identifies a function registered with a Runtime. Closures store it in their
// first payload word.
type FuncID int

// Func is the native code behind a closure. args holds the closure's bound arguments
// followed by the arguments of the call, exactly as many as the closure's arity. args
// remains rooted for the duration of the call, but aliases the root stack and must not
// be retained after the function returns.
type Func func(r *Runtime, args []value.Value) (value.Value, error)

type funcEntry struct {
	name string
	fn   Func
	// arity is only known for primitives and is -1 otherwise
	arity int
}

// RegisterFunc makes fn available to closures under the returned id. Registering a name
// a second time registers a new function and points the name at it.
func (r *Runtime) RegisterFunc(name string, fn Func) FuncID {
	return r.registerFunc(name, -1, fn)
}

func (r *Runtime) registerFunc(name string, arity int, fn Func) FuncID {
	id := FuncID(len(r.funcs))
	r.funcs = append(r.funcs, funcEntry{name: name, fn: fn, arity: arity})
	r.funcsByName.Put(name, id)
	return id
}

// LookupFunc finds the id most recently registered under name
func (r *Runtime) LookupFunc(name string) (FuncID, bool) {
	return r.funcsByName.Get(name)
}

// FuncName returns the name a function was registered under
func (r *Runtime) FuncName(id FuncID) (string, error) {
	entry, err := r.funcEntry(id)
	if err != nil {
		return "", err
	}

	return entry.name, nil
}

func (r *Runtime) funcEntry(id FuncID) (*funcEntry, error) {
	if id < 0 || int(id) >= len(r.funcs) {
		return nil, errors.Wrapf(ErrNotCallable, "function id %d has not been registered", id)
	}

	return &r.funcs[id], nil
}
