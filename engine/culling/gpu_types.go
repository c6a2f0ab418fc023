package culling

import (
	"encoding/binary"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPUVisibilityBatch is the GPU-aligned representation of one batch's culling
// output, read by draw and shadow submission shaders.
// Size: 144 bytes (std430 / WGSL aligned).
//
//	array<u32, 4>   visibility   (16 bytes, offset   0) word 0 low, word 0 high, word 1 low, word 1 high
//	array<u32, 32>  split_masks  (128 bytes, offset 16) four 8-bit masks per u32, instance 4k in the low byte
type GPUVisibilityBatch struct {
	Visibility [4]uint32
	SplitMasks [MaxBatchInstances / 4]uint32
}

// NewGPUVisibilityBatch packs a batch's bitmask and split masks.
//
// Parameters:
//   - b: the batch to pack
//
// Returns:
//   - GPUVisibilityBatch: the packed representation
func NewGPUVisibilityBatch(b *VisibilityBatch) GPUVisibilityBatch {
	var g GPUVisibilityBatch
	g.Visibility[0] = uint32(b.Visibility[0])
	g.Visibility[1] = uint32(b.Visibility[0] >> 32)
	g.Visibility[2] = uint32(b.Visibility[1])
	g.Visibility[3] = uint32(b.Visibility[1] >> 32)
	for i := range g.SplitMasks {
		g.SplitMasks[i] = uint32(b.SplitMasks[i*4]) |
			uint32(b.SplitMasks[i*4+1])<<8 |
			uint32(b.SplitMasks[i*4+2])<<16 |
			uint32(b.SplitMasks[i*4+3])<<24
	}
	return g
}

// Size returns the size of the GPUVisibilityBatch struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUVisibilityBatch) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVisibilityBatch into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload
func (g *GPUVisibilityBatch) Marshal() []byte {
	buf := make([]byte, 0, g.Size())
	return g.appendTo(buf)
}

func (g *GPUVisibilityBatch) appendTo(buf []byte) []byte {
	for _, w := range g.Visibility {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	for _, m := range g.SplitMasks {
		buf = binary.LittleEndian.AppendUint32(buf, m)
	}
	return buf
}

// MarshalVisibility packs every batch in the list, in list order, into one
// buffer for a single storage-buffer write. It must only be called after the
// pass that mutates the list has completed.
//
// Parameters:
//   - list: the batches to pack
//
// Returns:
//   - []byte: len(list) * 144 bytes
func MarshalVisibility(list BatchList) []byte {
	var g GPUVisibilityBatch
	n := list.Len()
	buf := make([]byte, 0, n*g.Size())
	for i := 0; i < n; i++ {
		g = NewGPUVisibilityBatch(list.Batch(i))
		buf = g.appendTo(buf)
	}
	return buf
}

// VisibilityBufferDescriptor describes the storage buffer that receives
// MarshalVisibility output for a pass of batchCount batches.
//
// Parameters:
//   - label: debug label for the buffer
//   - batchCount: number of batches the buffer must hold
//
// Returns:
//   - wgpu.BufferDescriptor: descriptor for device.CreateBuffer
func VisibilityBufferDescriptor(label string, batchCount int) wgpu.BufferDescriptor {
	var g GPUVisibilityBatch
	return wgpu.BufferDescriptor{
		Label:            label + " Visibility Buffer",
		Size:             uint64(max(batchCount, 1) * g.Size()),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	}
}
