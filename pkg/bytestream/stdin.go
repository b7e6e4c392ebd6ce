package bytestream

import "io"

// stdinStream is a Stream over an io.Reader (typically os.Stdin) that keeps
// the bytes read so far in memory, reading more only as Advance asks for
// them, since standard input cannot be memory-mapped or seeked.
type stdinStream struct {
	r    io.Reader
	data []byte
	pos  int
	eof  bool
}

// OpenStdin wraps r (typically os.Stdin) as a Stream.
func OpenStdin(r io.Reader) (Stream, error) {
	return &stdinStream{r: r, data: make([]byte, 0, 64*1024)}, nil
}

func (s *stdinStream) Advance(reqSize, step int) error {
	if step > len(s.data)-s.pos {
		return ErrInvalidArgument
	}
	s.pos += step
	s.data = s.data[s.pos:]
	s.pos = 0

	for !s.eof && len(s.data) < reqSize {
		chunk := make([]byte, 64*1024)
		n, err := s.r.Read(chunk)
		if n > 0 {
			s.data = append(s.data, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				s.eof = true
				break
			}
			return err
		}
	}
	return nil
}

func (s *stdinStream) Bytes() []byte {
	out := make([]byte, len(s.data)+Padding)
	copy(out, s.data)
	return out
}

func (s *stdinStream) Close() error {
	return nil
}
