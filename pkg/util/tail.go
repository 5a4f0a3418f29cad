package util

import (
	"context"
	"io"
	"sync"
)

// DefaultTailSize is the number of bytes retained by a TailBuffer created
// with a non-positive size.
const DefaultTailSize = 256 * 1024

// TailBuffer is an in-memory buffer that retains only the most recent bytes
// written to it, and can be read from by multiple readers in real time.
//
// Transcoders run for as long as their source stays up, so keeping their
// entire output in memory is not an option. A TailBuffer keeps at most
// 'size' bytes; older data is discarded as new data arrives.
//
// To read from the buffer, call NewStream(). The returned channel first
// receives the bytes currently retained by the buffer, then any new data
// written afterwards, until the buffer is closed or the context is canceled.
// A reader that falls behind by more than the retained size skips the data
// that was discarded in the meantime.
//
// TailBuffer implements io.WriteCloser. After Close(), writes return
// io.ErrClosedPipe, and streams drain the retained data and then close.
type TailBuffer struct {
	mu     sync.Mutex
	buf    []byte
	size   int
	total  int64 // number of bytes ever written
	closed bool

	// closed and replaced on every write, and closed on Close
	notify chan struct{}
}

var _ io.WriteCloser = (*TailBuffer)(nil)

func NewTailBuffer(size int) *TailBuffer {
	if size <= 0 {
		size = DefaultTailSize
	}
	return &TailBuffer{
		buf:    make([]byte, 0, size),
		size:   size,
		notify: make(chan struct{}),
	}
}

func (b *TailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n := len(p)
	if n == 0 {
		return 0, nil
	}
	if n >= b.size {
		b.buf = append(b.buf[:0], p[n-b.size:]...)
	} else {
		if overflow := len(b.buf) + n - b.size; overflow > 0 {
			// shift the retained bytes down in place
			b.buf = b.buf[:copy(b.buf, b.buf[overflow:])]
		}
		b.buf = append(b.buf, p...)
	}
	b.total += int64(n)

	close(b.notify)
	b.notify = make(chan struct{})
	return n, nil
}

func (b *TailBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.notify)
	return nil
}

// Bytes returns a copy of the data currently retained by the buffer.
func (b *TailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}

// Len returns the total number of bytes ever written to the buffer,
// including bytes that are no longer retained.
func (b *TailBuffer) Len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *TailBuffer) NewStream(ctx context.Context) <-chan []byte {
	rc := make(chan []byte, 1)

	b.mu.Lock()
	pos := b.total - int64(len(b.buf))
	b.mu.Unlock()

	go func() {
		defer close(rc)
		for {
			data, next, wait, closed := b.readFrom(pos)
			pos = next
			if len(data) > 0 {
				select {
				case rc <- data:
				case <-ctx.Done():
					return
				}
				continue
			}
			if closed {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-wait:
			}
		}
	}()
	return rc
}

// readFrom copies everything written at or after the absolute offset 'pos'
// that is still retained, and returns the offset to continue reading from.
func (b *TailBuffer) readFrom(pos int64) (data []byte, next int64, wait <-chan struct{}, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.total - int64(len(b.buf))
	if pos < start {
		pos = start // the reader fell behind; skip discarded data
	}
	if pos < b.total {
		data = append([]byte(nil), b.buf[pos-start:]...)
	}
	return data, b.total, b.notify, b.closed
}
