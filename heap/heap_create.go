package heap

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/internal/utils"
	"github.com/vkngwrapper/mlrt/value"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific heap behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = map[CreateFlags]string{}

func (f CreateFlags) Register(str string) {
	createFlagsMapping[f] = str
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := createFlagsMapping[bit]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

const (
	// HeapCreateExternallySynchronized ensures that the heap will not be synchronized internally.
	// Allocation, collection and statistics reads then must all happen on one goroutine at a
	// time, but allocation avoids the cost of the internal mutex.
	HeapCreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	HeapCreateExternallySynchronized.Register("HeapCreateExternallySynchronized")
}

const (
	// DefaultCollectThreshold is the number of bytes that may be allocated before the first
	// collection when CreateOptions.InitialCollectThreshold is left blank
	DefaultCollectThreshold int = 680
	// DefaultRootStackSize is the capacity of the root stack when CreateOptions.RootStackSize
	// is left blank
	DefaultRootStackSize int = 1024
)

// CreateOptions contains optional settings when creating a heap
type CreateOptions struct {
	// Flags indicates specific heap behaviors to activate or deactivate
	Flags CreateFlags

	// InitialCollectThreshold is the number of allocated bytes that triggers the first
	// collection. After every collection the threshold becomes twice the live byte count.
	InitialCollectThreshold int
	// MinCollectThreshold is a floor applied to the threshold computed after each
	// collection. It can be left blank, in which case the threshold is exactly twice
	// the live byte count.
	MinCollectThreshold int
	// HeapSizeLimit can be left blank. If it is provided, allocations that would bring the
	// live byte count above the limit after a full collection fail with
	// memutils.ErrOutOfMemory.
	HeapSizeLimit int

	// RootStackSize is the capacity of the root stack in values
	RootStackSize int

	// CallbackOptions is an optional set of callbacks that will be executed as blocks are
	// allocated and reclaimed
	CallbackOptions *CallbackOptions
}

// New creates a new Heap
//
// logger - The logger that heap diagnostics are written to. If nil, slog.Default() is used
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Heap, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if options.InitialCollectThreshold < 0 {
		return nil, errors.Newf("heap.CreateOptions.InitialCollectThreshold must not be negative, but is %d", options.InitialCollectThreshold)
	}
	if options.MinCollectThreshold < 0 {
		return nil, errors.Newf("heap.CreateOptions.MinCollectThreshold must not be negative, but is %d", options.MinCollectThreshold)
	}
	if options.HeapSizeLimit < 0 {
		return nil, errors.Newf("heap.CreateOptions.HeapSizeLimit must not be negative, but is %d", options.HeapSizeLimit)
	}
	if options.RootStackSize < 0 {
		return nil, errors.Newf("heap.CreateOptions.RootStackSize must not be negative, but is %d", options.RootStackSize)
	}

	heap := &Heap{
		mutex:  utils.OptionalRWMutex{UseMutex: options.Flags&HeapCreateExternallySynchronized == 0},
		logger: logger,

		createFlags:         options.Flags,
		collectThreshold:    options.InitialCollectThreshold,
		minCollectThreshold: options.MinCollectThreshold,
		heapSizeLimit:       options.HeapSizeLimit,
	}

	if heap.collectThreshold == 0 {
		heap.collectThreshold = DefaultCollectThreshold
	}

	stackSize := options.RootStackSize
	if stackSize == 0 {
		stackSize = DefaultRootStackSize
	}
	heap.roots.stack = make([]value.Value, stackSize)

	heap.callbacks = heapCallbacks{
		Callbacks: options.CallbackOptions,
		Heap:      heap,
	}

	logger.Debug("Heap::New",
		slog.String("Flags", options.Flags.String()),
		slog.Int("CollectThreshold", heap.collectThreshold),
		slog.Int("RootStackSize", stackSize),
	)

	return heap, nil
}
