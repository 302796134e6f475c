package utils

import (
	"sync"
)

// OptionalRWMutex is a sync.RWMutex that can be switched off when the consumer
// guarantees external synchronization
type OptionalRWMutex struct {
	Mutex    sync.RWMutex
	UseMutex bool
}

func (m *OptionalRWMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalRWMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

func (m *OptionalRWMutex) RLock() {
	if m.UseMutex {
		m.Mutex.RLock()
	}
}

func (m *OptionalRWMutex) RUnlock() {
	if m.UseMutex {
		m.Mutex.RUnlock()
	}
}

// ReadLocked returns the result of read, called with m held for reading
func ReadLocked[T any](m *OptionalRWMutex, read func() T) T {
	m.RLock()
	defer m.RUnlock()

	return read()
}
