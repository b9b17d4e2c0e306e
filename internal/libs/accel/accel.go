// Package accel provides batching helpers for bulk catalog loads.
package accel

// DefaultBatchSize is used when a non-positive size is requested
const DefaultBatchSize = 100

// Batch splits work into fixed-size chunks
type Batch struct {
	size int
}

// NewBatch creates a new batch helper with the given size
func NewBatch(size int) *Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batch{size: size}
}

// Size returns the batch size
func (b *Batch) Size() int {
	return b.size
}

// Count returns how many chunks n items produce
func (b *Batch) Count(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + b.size - 1) / b.size
}

// Each calls fn with consecutive chunks of items, stopping at the first error.
// The chunks share the backing array of items.
func Each[T any](b *Batch, items []T, fn func(index int, chunk []T) error) error {
	for i, start := 0, 0; start < len(items); i, start = i+1, start+b.size {
		end := start + b.size
		if end > len(items) {
			end = len(items)
		}
		if err := fn(i, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}
