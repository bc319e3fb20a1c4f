package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"slang/internal/runtime/builtins"
)

// Env aggregates host services used by host methods.
// Env implements builtins.Env to avoid import cycles.
type Env struct {
	ioService builtins.IO
}

// IO returns the IO service. Implements builtins.Env interface.
func (e *Env) IO() builtins.IO {
	return e.ioService
}

// stdIO is the default IO implementation for CLI/console.
type stdIO struct {
	out    io.Writer
	reader *bufio.Reader
}

func newStdIO() *stdIO {
	return &stdIO{
		out:    os.Stdout,
		reader: bufio.NewReader(os.Stdin),
	}
}

func (s *stdIO) Write(str string) {
	fmt.Fprint(s.out, str)
}

func (s *stdIO) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		// Handle EOF - io.EOF is returned when stdin is closed
		if errors.Is(err, io.EOF) {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// BufferIO collects console output in memory. Input is read from In.
type BufferIO struct {
	Out strings.Builder
	In  *bufio.Reader
}

// NewBufferIO returns a BufferIO whose input is input.
func NewBufferIO(input string) *BufferIO {
	return &BufferIO{In: bufio.NewReader(strings.NewReader(input))}
}

func (b *BufferIO) Write(s string) { b.Out.WriteString(s) }

func (b *BufferIO) ReadLine() (string, error) {
	line, err := b.In.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// DefaultEnv returns an Env writing to stdout and reading from stdin.
func DefaultEnv() *Env {
	return &Env{ioService: newStdIO()}
}

// NewEnv creates a new Env with the given IO service.
// This is useful for tests that need to provide a custom IO implementation.
func NewEnv(io builtins.IO) *Env {
	return &Env{ioService: io}
}
