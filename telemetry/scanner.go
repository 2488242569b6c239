package telemetry

import "io"

// Scanner splits a console byte stream into telemetry records and raw
// passthrough output. Bytes outside valid frames (boot ROM chatter, runtime
// panics printed by the firmware) are forwarded unmodified to OnRaw.
type Scanner struct {
	r   io.Reader
	buf []byte

	// OnRaw receives every byte that is not part of a valid frame.
	// Nil discards them.
	OnRaw func([]byte)
}

// NewScanner returns a scanner over the console stream.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: r, buf: make([]byte, 0, 256)}
}

// Next returns the next decoded record. It blocks on the underlying reader
// and returns its error (io.EOF at end of stream) once the buffered bytes are
// exhausted.
func (s *Scanner) Next() (Record, error) {
	for {
		if rec, ok := s.sift(); ok {
			return rec, nil
		}
		var chunk [128]byte
		n, err := s.r.Read(chunk[:])
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			continue
		}
		if err != nil {
			// Whatever is left can never complete a frame.
			s.flushRaw(len(s.buf))
			return Record{}, err
		}
	}
}

// sift consumes raw bytes and damaged frames until a full record or an
// incomplete tail remains.
func (s *Scanner) sift() (Record, bool) {
	for len(s.buf) > 0 {
		if s.buf[0] != SyncByte {
			s.flushRaw(1)
			continue
		}
		rec, n, err := Decode(s.buf)
		switch err {
		case nil:
			s.buf = s.buf[n:]
			return rec, true
		case ErrTruncated:
			return Record{}, false
		default:
			if n == 0 {
				n = 1
			}
			s.flushRaw(n)
		}
	}
	return Record{}, false
}

func (s *Scanner) flushRaw(n int) {
	if n > len(s.buf) {
		n = len(s.buf)
	}
	if n == 0 {
		return
	}
	if s.OnRaw != nil {
		s.OnRaw(s.buf[:n])
	}
	s.buf = s.buf[n:]
}
