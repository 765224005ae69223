package lvtjpgd

import "io"

// streamFeed adapts the session's forward-only stream to the engine's
// pull interface. It is the only component that touches the stream after
// a probe, and it keeps call and byte counters so resume behavior stays
// observable.
type streamFeed struct {
	r     io.Reader
	reads int
	skips int
	total int64
}

// ReadBytes fills p from the stream and returns the byte count. A short
// count only happens at end of stream.
func (f *streamFeed) ReadBytes(p []byte) int {
	f.reads++
	n, _ := io.ReadFull(f.r, p)
	f.total += int64(n)
	return n
}

// SkipBytes advances the stream by n bytes without materializing them,
// seeking when the stream supports it. It returns the bytes skipped,
// zero when the stream failed.
func (f *streamFeed) SkipBytes(n int) int {
	if n <= 0 {
		return 0
	}
	f.skips++
	if s, ok := f.r.(io.Seeker); ok {
		if _, err := s.Seek(int64(n), io.SeekCurrent); err != nil {
			return 0
		}
		f.total += int64(n)
		return n
	}
	m, _ := io.CopyN(io.Discard, f.r, int64(n))
	f.total += m
	return int(m)
}
