package rt

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/value"
)

//go:generate mockgen -source console.go -destination mocks/mock_console.go -package mock_rt

// Console is the byte stream that compiled programs read from and write to
type Console interface {
	WriteByte(c byte) error
	// ReadByte returns io.EOF once the input is exhausted
	ReadByte() (byte, error)
	Flush() error
}

type bufferedConsole struct {
	in  *bufio.Reader
	out *bufio.Writer
}

// NewBufferedConsole creates a Console that buffers both directions of the provided streams
func NewBufferedConsole(in io.Reader, out io.Writer) Console {
	return &bufferedConsole{
		in:  bufio.NewReader(in),
		out: bufio.NewWriter(out),
	}
}

func (c *bufferedConsole) WriteByte(b byte) error {
	return c.out.WriteByte(b)
}

func (c *bufferedConsole) ReadByte() (byte, error) {
	return c.in.ReadByte()
}

func (c *bufferedConsole) Flush() error {
	return c.out.Flush()
}

// Putc writes the low byte of c to the console
func (r *Runtime) Putc(c int) error {
	err := r.console.WriteByte(byte(c))
	if err != nil {
		return r.RaiseSysError(err.Error())
	}

	return nil
}

// Getc reads one byte from the console, returning -1 once the input is exhausted. Pending
// output is flushed first so that prompts appear before the program blocks on input.
func (r *Runtime) Getc() (int, error) {
	err := r.console.Flush()
	if err != nil {
		return 0, r.RaiseSysError(err.Error())
	}

	c, err := r.console.ReadByte()
	if errors.Is(err, io.EOF) {
		return -1, nil
	} else if err != nil {
		return 0, r.RaiseSysError(err.Error())
	}

	return int(c), nil
}

// Flush writes any buffered console output
func (r *Runtime) Flush() error {
	return r.console.Flush()
}

func putcPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	c, err := intArg(args[0], "character")
	if err != nil {
		return value.Unit, err
	}

	return value.Unit, r.Putc(c)
}

func getcPrimitive(r *Runtime, args []value.Value) (value.Value, error) {
	c, err := r.Getc()
	if err != nil {
		return value.Unit, err
	}

	return value.FromInt(int64(c)), nil
}
