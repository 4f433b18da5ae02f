package running

import (
	"sync"
	"unicode/utf8"
)

// tailBuffer is an io.Writer that keeps only enough trailing bytes to
// recover the last n characters of everything written to it.
type tailBuffer struct {
	mu    sync.Mutex
	n     int
	limit int
	buf   []byte
	total int64
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n, limit: (n + 1) * utf8.UTFMax}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total += int64(len(p))
	t.buf = append(t.buf, p...)
	if len(t.buf) > 2*t.limit {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.limit:]...)
	}
	return len(p), nil
}

// String returns the last n characters written.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lastRunes(string(t.buf), t.n)
}

// Len is the number of bytes ever written.
func (t *tailBuffer) Len() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}
