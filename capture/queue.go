// Package capture owns the camera capture queue: the ordered page images a
// user has photographed, their crops, and the lifecycle of the underlying
// image buffers. The queue is the pipeline's only mutable shared state and is
// owned exclusively by the capturing session; the OCR worker never touches it.
package capture

import (
	"fmt"
	"sync"

	"github.com/cliniscan/doctext/geo"
)

// Buffer is an image-buffer resource that must be released explicitly when a
// capture is discarded. Release must be idempotent.
type Buffer interface {
	Bytes() []byte
	Release()
}

// PreviewHandle is a UI preview tied to a capture; revoking it invalidates
// the preview immediately rather than waiting for collection.
type PreviewHandle interface {
	Revoke()
}

type entry struct {
	buf     Buffer
	preview PreviewHandle
	width   int
	height  int
	crop    *geo.Crop
}

func (e *entry) release() {
	if e.buf != nil {
		e.buf.Release()
	}
	if e.preview != nil {
		e.preview.Revoke()
	}
}

// Queue is the ordered capture queue for one document session.
type Queue struct {
	mu      sync.Mutex
	entries []*entry
}

// NewQueue returns an empty capture queue.
func NewQueue() *Queue { return &Queue{} }

// AddPage appends a captured page. The queue takes ownership of the buffer
// and preview handle.
func (q *Queue) AddPage(buf Buffer, preview PreviewHandle, width, height int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &entry{buf: buf, preview: preview, width: width, height: height})
}

// Len returns the number of queued pages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// RetakeLast discards the most recent capture, releasing its buffer and
// revoking its preview immediately. Returns false when the queue is empty.
func (q *Queue) RetakeLast() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return false
	}
	last := q.entries[len(q.entries)-1]
	q.entries = q.entries[:len(q.entries)-1]
	last.release()
	return true
}

// ClearAll discards every queued capture, releasing each entry, and returns
// how many were released.
func (q *Queue) ClearAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	for _, e := range q.entries {
		e.release()
	}
	q.entries = nil
	return n
}

// SetPageCrop attaches a crop to the page at index. Inverted coordinates are
// normalized by swapping; a degenerate crop clears any existing crop instead.
func (q *Queue) SetPageCrop(index int, crop geo.Crop) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.entries) {
		return fmt.Errorf("page index %d out of range [0,%d)", index, len(q.entries))
	}
	if crop.IsDegenerate() {
		q.entries[index].crop = nil
		return nil
	}
	normalized := crop.Normalize()
	q.entries[index].crop = &normalized
	return nil
}

// ClearAllCrops removes every crop and returns how many were cleared.
func (q *Queue) ClearAllCrops() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	cleared := 0
	for _, e := range q.entries {
		if e.crop != nil {
			e.crop = nil
			cleared++
		}
	}
	return cleared
}

// ExportedPage is one queue entry prepared for an OCR job request. Crop is
// already normalized (never inverted) or nil.
type ExportedPage struct {
	PageIndex int
	Image     []byte
	Width     int
	Height    int
	Crop      *geo.Crop
}

// ExportForOCR snapshots the queue in order. Buffers stay owned by the
// queue; the exported byte slices alias them, so callers must finish the job
// before clearing the queue.
func (q *Queue) ExportForOCR() []ExportedPage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ExportedPage, 0, len(q.entries))
	for i, e := range q.entries {
		page := ExportedPage{
			PageIndex: i,
			Width:     e.width,
			Height:    e.height,
		}
		if e.buf != nil {
			page.Image = e.buf.Bytes()
		}
		if e.crop != nil {
			c := e.crop.Normalize()
			page.Crop = &c
		}
		out = append(out, page)
	}
	return out
}

// MemoryBuffer is a Buffer backed by an in-memory byte slice.
type MemoryBuffer struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

// NewMemoryBuffer wraps data in a releasable buffer.
func NewMemoryBuffer(data []byte) *MemoryBuffer {
	return &MemoryBuffer{data: data}
}

// Bytes returns the buffer contents, nil after release.
func (b *MemoryBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return b.data
}

// Release drops the backing slice. Safe to call more than once.
func (b *MemoryBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	b.data = nil
}

// Released reports whether Release has been called.
func (b *MemoryBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}
