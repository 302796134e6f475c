package rt

import (
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

type globalEntry struct {
	value value.Value
	name  string
}

// RegisterGlobal stores v as the module global in slot, under name. Globals are roots:
// a registered value is never collected while it remains registered.
func (r *Runtime) RegisterGlobal(slot int, v value.Value, name string) error {
	err := memutils.CheckNonNegative(slot, "global slot")
	if err != nil {
		return err
	}

	previous, ok := r.globals.Get(slot)
	if ok && previous.name != name {
		r.globalNames.Delete(previous.name)
	}

	r.globals.Put(slot, globalEntry{value: v, name: name})
	if name != "" {
		r.globalNames.Put(name, slot)
	}

	return nil
}

// Global returns the value registered in slot
func (r *Runtime) Global(slot int) (value.Value, bool) {
	entry, ok := r.globals.Get(slot)
	return entry.value, ok
}

// GlobalByName returns the value most recently registered under name
func (r *Runtime) GlobalByName(name string) (value.Value, bool) {
	slot, ok := r.globalNames.Get(name)
	if !ok {
		return value.Unit, false
	}

	return r.Global(slot)
}

// GlobalCount returns the number of registered globals
func (r *Runtime) GlobalCount() int {
	return r.globals.Count()
}
