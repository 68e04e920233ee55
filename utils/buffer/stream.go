package buffer

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/tuneinsight/rnsct/utils"
)

// FaultMode selects how a [Stream] reports faults of its underlying reader or writer.
type FaultMode int

const (
	// Lenient records faults in the sticky state of the stream without
	// returning them: after a fault, writes are silently discarded and reads
	// report io.EOF. Callers inspect [Stream.Fault] to detect it.
	Lenient = FaultMode(iota)
	// Strict returns every fault as an error wrapping [utils.ErrIOFault].
	Strict
)

func (m FaultMode) String() string {
	switch m {
	case Lenient:
		return "Lenient"
	case Strict:
		return "Strict"
	default:
		return fmt.Sprintf("FaultMode(%d)", int(m))
	}
}

var (
	errNotReadable = errors.New("stream is not readable")
	errNotWritable = errors.New("stream is not writable")
)

// Stream is a buffered byte stream over an io.Reader and/or an io.Writer
// with a sticky fault state and a selectable fault-reporting mode.
// Once a fault occurred, all subsequent operations fail until [Stream.Clear]
// is called. Stream implements both the [Writer] and the [Reader] interfaces,
// so that it can be handed directly to the WriteTo and ReadFrom methods of
// the serializable objects of this module.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	r     *bufio.Reader
	w     *bufio.Writer
	mode  FaultMode
	fault error

	discard []byte
}

// NewStream returns a new Stream reading from and writing to rw, in [Lenient] mode.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{r: bufio.NewReader(rw), w: bufio.NewWriter(rw)}
}

// NewReadStream returns a new read-only Stream over r, in [Lenient] mode.
func NewReadStream(r io.Reader) *Stream {
	return &Stream{r: bufio.NewReader(r)}
}

// NewWriteStream returns a new write-only Stream over w, in [Lenient] mode.
func NewWriteStream(w io.Writer) *Stream {
	return &Stream{w: bufio.NewWriter(w)}
}

// Mode returns the current fault-reporting mode of the stream.
func (s *Stream) Mode() FaultMode {
	return s.mode
}

// SetMode sets the fault-reporting mode of the stream and returns the previous one.
func (s *Stream) SetMode(mode FaultMode) (previous FaultMode) {
	previous, s.mode = s.mode, mode
	return
}

// Fault returns the first fault recorded by the stream, or nil.
// The returned error wraps [utils.ErrIOFault].
func (s *Stream) Fault() error {
	return s.fault
}

// Failed returns true if the stream recorded a fault.
func (s *Stream) Failed() bool {
	return s.fault != nil
}

// Clear resets the fault state of the stream.
func (s *Stream) Clear() {
	s.fault = nil
}

// record stores err as the sticky fault if none is set yet.
func (s *Stream) record(err error) {
	if s.fault == nil {
		s.fault = fmt.Errorf("%w: %w", utils.ErrIOFault, err)
	}
}

// Write writes p to the stream.
func (s *Stream) Write(p []byte) (n int, err error) {

	if s.fault == nil {
		if s.w == nil {
			s.record(errNotWritable)
		} else if n, err = s.w.Write(p); err != nil {
			s.record(err)
		}
	}

	if s.fault == nil {
		return n, nil
	}

	if s.mode == Strict {
		return n, s.fault
	}

	return len(p), nil
}

// Flush writes any buffered data to the underlying io.Writer.
func (s *Stream) Flush() (err error) {

	if s.fault == nil {
		if s.w == nil {
			s.record(errNotWritable)
		} else if err = s.w.Flush(); err != nil {
			s.record(err)
		}
	}

	if s.fault != nil && s.mode == Strict {
		return s.fault
	}

	return nil
}

// AvailableBuffer returns an empty buffer with s.Available() capacity.
// See [bufio.Writer.AvailableBuffer].
func (s *Stream) AvailableBuffer() []byte {
	switch {
	case s.w == nil:
		return nil
	case s.fault != nil:
		// Writes are discarded: hand out a scratch buffer.
		if s.discard == nil {
			s.discard = make([]byte, s.w.Size())
		}
		return s.discard[:0]
	default:
		return s.w.AvailableBuffer()
	}
}

// Available returns how many bytes are unused in the write buffer.
func (s *Stream) Available() int {
	switch {
	case s.w == nil:
		return 0
	case s.fault != nil:
		return s.w.Size()
	default:
		return s.w.Available()
	}
}

// Read reads up to len(p) bytes into p.
func (s *Stream) Read(p []byte) (n int, err error) {

	if len(p) == 0 {
		return 0, nil
	}

	if s.fault == nil {
		if s.r == nil {
			s.record(errNotReadable)
		} else if n, err = s.r.Read(p); err != nil {
			s.record(err)
		}
	}

	return n, s.readError()
}

// Size returns the size of the read buffer in bytes.
func (s *Stream) Size() int {
	if s.r == nil {
		return 0
	}
	return s.r.Size()
}

// Peek returns the next n bytes without advancing the stream.
// See [bufio.Reader.Peek].
func (s *Stream) Peek(n int) (p []byte, err error) {

	if s.fault == nil {
		if s.r == nil {
			s.record(errNotReadable)
		} else if p, err = s.r.Peek(n); err != nil {
			s.record(err)
		}
	}

	return p, s.readError()
}

// Discard skips the next n bytes, returning the number of bytes discarded.
func (s *Stream) Discard(n int) (discarded int, err error) {

	if s.fault == nil {
		if s.r == nil {
			s.record(errNotReadable)
		} else if discarded, err = s.r.Discard(n); err != nil {
			s.record(err)
		}
	}

	return discarded, s.readError()
}

func (s *Stream) readError() error {
	switch {
	case s.fault == nil:
		return nil
	case s.mode == Strict:
		return s.fault
	default:
		return io.EOF
	}
}

// FaultGuard restores the fault-reporting mode of a [Stream] captured when
// the guard was created.
type FaultGuard struct {
	s        *Stream
	previous FaultMode
	restored bool
}

// Guard switches s to mode and returns a FaultGuard holding the previous mode.
// The caller must call [FaultGuard.Restore], typically with defer:
//
//	guard := buffer.Guard(s, buffer.Strict)
//	defer guard.Restore()
func Guard(s *Stream, mode FaultMode) *FaultGuard {
	return &FaultGuard{s: s, previous: s.SetMode(mode)}
}

// Restore sets the stream back to the mode it had when the guard was created.
// Calling Restore more than once has no effect.
func (g *FaultGuard) Restore() {
	if !g.restored {
		g.s.SetMode(g.previous)
		g.restored = true
	}
}
