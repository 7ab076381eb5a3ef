package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer buffers emitted C source in a strings.Builder.
// When the Flush or Close method is called the buffer is emptied and sent to
// the assigned output writer through channel c.
type Writer struct {
	sb strings.Builder
	c  chan string
}

// -------------------
// ----- Globals -----
// -------------------

var wc chan string     // Write channel used for receiving data from worker threads.
var cc chan error      // Close channel used by main thread to signal to end write operations.
var wg *sync.WaitGroup // Used for synchronising when I/O finished writing to output.

// ---------------------
// ----- Functions -----
// ---------------------

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Line writes an indented statement line terminated by a semicolon.
func (w *Writer) Line(s string) {
	w.sb.WriteString("    ")
	w.sb.WriteString(s)
	w.sb.WriteString(";\n")
}

// Indent writes the statement indentation used inside function bodies.
func (w *Writer) Indent() {
	w.sb.WriteString("    ")
}

// Label writes a one-line block label with the given name.
func (w *Writer) Label(name string) {
	w.sb.WriteString(fmt.Sprintf("    %s:\n", name))
}

// Newline terminates the current output line.
func (w *Writer) Newline() {
	w.sb.WriteRune('\n')
}

// String returns the buffered output. Only meaningful for buffer-only
// writers that never flush.
func (w *Writer) String() string {
	return w.sb.String()
}

// Flush empties the Writer's buffer and sends the buffer data to the
// designated output writer over the Writer's channel. Buffer-only writers
// keep their content.
func (w *Writer) Flush() {
	if w.c == nil {
		return
	}
	w.c <- w.sb.String()
	w.sb = strings.Builder{}
}

// Close flushes the Writer's buffer and then detaches the Writer from the
// shared output channel. The channel itself stays open.
func (w *Writer) Close() {
	if w.c == nil {
		return
	}
	w.Flush()
	w.c = nil
	wg.Done()
}

// NewWriter returns a new Writer to be used for emitting C source to the output buffer.
// Must not be called before main thread has called ListenWrite.
func NewWriter() Writer {
	wg.Add(1)
	return Writer{
		sb: strings.Builder{},
		c:  wc,
	}
}

// NewBufferWriter returns a Writer that only buffers. Used by tests and
// benchmarks that inspect the emitted source directly.
func NewBufferWriter() Writer {
	return Writer{}
}

// ListenWrite listens for emitted output. The received data is written to either file
// if File pointer f is not nil or stdout if File pointer f is nil. The function loops until
// a termination signal is sent using the Close function.
func ListenWrite(opt Options, f *os.File, wgg *sync.WaitGroup) {
	wg = wgg
	wc = make(chan string, opt.Threads+1)
	cc = make(chan error, 1) // Make buffered to catch Close before listener is invoked.
	var w *bufio.Writer
	if f != nil {
		// Write output to file.
		w = bufio.NewWriter(f)
	} else {
		// Write output to stdout.
		w = bufio.NewWriter(os.Stdout)
	}

	// Listen for input and termination signal.
	go func(wc chan string, cc chan error) {
		defer close(wc)
		defer close(cc)
		for {
			select {
			case s := <-wc:
				if _, err := w.WriteString(s); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
				if err := w.Flush(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			case <-cc:
				return
			}
		}
	}(wc, cc)
}

// Close sends the termination signal to the writer listener.
func Close() {
	cc <- nil
}
