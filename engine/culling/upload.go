package culling

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoVisibilityBuffer is returned when a visibility upload has no queue or
// destination buffer.
var ErrNoVisibilityBuffer = errors.New("culling: visibility upload requires a queue and a buffer")

// WriteVisibility packs list with MarshalVisibility and writes it to the start
// of buf. Empty lists write nothing.
//
// Parameters:
//   - queue: the device queue to write through
//   - buf: the storage buffer, at least len(list) * 144 bytes
//   - list: the culled batches
//
// Returns:
//   - error: ErrNoVisibilityBuffer, or the queue write error
func WriteVisibility(queue *wgpu.Queue, buf *wgpu.Buffer, list BatchList) error {
	if queue == nil || buf == nil {
		return ErrNoVisibilityBuffer
	}
	data := MarshalVisibility(list)
	if len(data) == 0 {
		return nil
	}
	return queue.WriteBuffer(buf, 0, data)
}

// VisibilityUploader owns the storage buffer one pass's visibility is uploaded
// into. The buffer is recreated with headroom when the batch count outgrows it,
// so bind groups referencing it must be rebuilt when Upload returns a new one.
type VisibilityUploader struct {
	mu *sync.Mutex

	label  string
	device *wgpu.Device
	queue  *wgpu.Queue

	buffer   *wgpu.Buffer
	capacity int // batches
}

// NewVisibilityUploader creates an uploader for the given device and queue.
// NewVisibilityUploader panics if either is nil.
//
// Parameters:
//   - label: debug label for the buffer
//   - device: the device that creates the buffer
//   - queue: the queue that writes it
//
// Returns:
//   - *VisibilityUploader: the uploader; no buffer exists until the first Upload
func NewVisibilityUploader(label string, device *wgpu.Device, queue *wgpu.Queue) *VisibilityUploader {
	if device == nil || queue == nil {
		panic("culling: NewVisibilityUploader requires a non-nil Device and Queue")
	}
	return &VisibilityUploader{
		mu:     &sync.Mutex{},
		label:  label,
		device: device,
		queue:  queue,
	}
}

// Upload writes the list's visibility to the uploader's buffer, growing it
// first if needed.
//
// Parameters:
//   - list: the culled batches
//
// Returns:
//   - *wgpu.Buffer: the buffer holding the upload
//   - error: buffer creation or queue write failure
func (u *VisibilityUploader) Upload(list BatchList) (*wgpu.Buffer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	n := list.Len()
	if u.buffer == nil || n > u.capacity {
		capacity := visibilityCapacity(u.capacity, n)
		desc := VisibilityBufferDescriptor(u.label, capacity)
		buf, err := u.device.CreateBuffer(&desc)
		if err != nil {
			return nil, fmt.Errorf("culling: %s visibility buffer for %d batches: %w", u.label, capacity, err)
		}
		if u.buffer != nil {
			u.buffer.Release()
		}
		u.buffer, u.capacity = buf, capacity
	}

	if err := WriteVisibility(u.queue, u.buffer, list); err != nil {
		return nil, fmt.Errorf("culling: %s visibility upload: %w", u.label, err)
	}
	return u.buffer, nil
}

// Buffer returns the current buffer, or nil before the first Upload.
func (u *VisibilityUploader) Buffer() *wgpu.Buffer {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.buffer
}

// Release frees the buffer.
func (u *VisibilityUploader) Release() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.buffer != nil {
		u.buffer.Release()
		u.buffer, u.capacity = nil, 0
	}
}

// visibilityCapacity returns the batch capacity to allocate for need batches,
// doubling from current so steady growth does not recreate the buffer every frame.
func visibilityCapacity(current, need int) int {
	capacity := max(current, 1)
	for capacity < need {
		capacity *= 2
	}
	return capacity
}
