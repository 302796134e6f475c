package rt

import (
	"io"
	"os"

	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/mlrt/heap"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating a runtime
type CreateOptions struct {
	// Heap is passed through to heap.New when the runtime creates its heap
	Heap heap.CreateOptions

	// Console is the byte stream used by caml_putc and caml_getc. It can be left blank,
	// in which case buffered stdin and stdout are used.
	Console Console
	// Stderr receives the diagnostic written for an uncaught exception. It can be left
	// blank, in which case os.Stderr is used.
	Stderr io.Writer
	// Exit is called with the exit status after an uncaught exception has been reported.
	// It can be left blank, in which case os.Exit is used.
	Exit func(code int)
}

// New creates a Runtime along with the heap that backs it. The primitive library is
// registered before New returns.
//
// logger - The logger that runtime and heap diagnostics are written to. If nil, slog.Default() is used
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	h, err := heap.New(logger, options.Heap)
	if err != nil {
		return nil, err
	}

	runtime := &Runtime{
		logger: logger,
		heap:   h,

		funcsByName: swiss.NewMap[string, FuncID](32),
		globals:     swiss.NewMap[int, globalEntry](16),
		globalNames: swiss.NewMap[string, int](16),

		pending: pendingNone,

		console: options.Console,
		stderr:  options.Stderr,
		exit:    options.Exit,
	}

	if runtime.console == nil {
		runtime.console = NewBufferedConsole(os.Stdin, os.Stdout)
	}
	if runtime.stderr == nil {
		runtime.stderr = os.Stderr
	}
	if runtime.exit == nil {
		runtime.exit = os.Exit
	}

	h.RegisterRootSet(runtime)
	runtime.registerPrimitives()

	logger.Debug("Runtime::New",
		slog.Int("Primitives", len(runtime.funcs)),
	)

	return runtime, nil
}
