//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
)

// Memory management errors.
var (
	// ErrMemoryBudgetExceeded is returned when an allocation would exceed
	// the budget.
	ErrMemoryBudgetExceeded = errors.New("gpu: memory budget exceeded")

	// ErrMemoryManagerClosed is returned when operating on a closed manager.
	ErrMemoryManagerClosed = errors.New("gpu: memory manager closed")

	// ErrBindingTooLarge is returned when one buffer exceeds the storage
	// binding limit.
	ErrBindingTooLarge = errors.New("gpu: buffer exceeds storage binding limit")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default GPU memory budget (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the minimum allowed memory budget (16 MB).
	MinMemoryMB = 16

	// MaxBindingBytes is the largest storage buffer bound to a shader,
	// the WebGPU default maxStorageBufferBindingSize.
	MaxBindingBytes = 128 << 20
)

// MemoryStats contains GPU memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// BufferCount is the number of live buffers.
	BufferCount int

	// Utilization is the fraction of budget used (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, peak %d MB, %d buffers]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.PeakBytes/(1024*1024),
		s.BufferCount)
}

// MemoryManager accounts GPU buffer allocations against a budget.
// Packing targets are owned by the caller, so there is no eviction: an
// allocation over budget fails and the caller reports it.
//
// MemoryManager is safe for concurrent use.
type MemoryManager struct {
	mu sync.Mutex

	budgetBytes uint64
	usedBytes   uint64
	peakBytes   uint64
	buffers     int
	closed      bool
}

// NewMemoryManager creates a manager with a budget of maxMB megabytes.
// Values below MinMemoryMB select DefaultMaxMemoryMB.
func NewMemoryManager(maxMB int) *MemoryManager {
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}
	//nolint:gosec // G115: maxMB is bounded by MinMemoryMB minimum
	return &MemoryManager{budgetBytes: uint64(maxMB) * 1024 * 1024}
}

// Reserve accounts for a buffer of size bytes.
func (m *MemoryManager) Reserve(size uint64) error {
	if size > MaxBindingBytes {
		return fmt.Errorf("%w: %d MB > %d MB", ErrBindingTooLarge, size/(1024*1024), MaxBindingBytes/(1024*1024))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMemoryManagerClosed
	}
	if m.usedBytes+size > m.budgetBytes {
		return fmt.Errorf("%w: need %d MB, %d of %d MB in use",
			ErrMemoryBudgetExceeded,
			size/(1024*1024),
			m.usedBytes/(1024*1024),
			m.budgetBytes/(1024*1024))
	}
	m.usedBytes += size
	m.peakBytes = max(m.peakBytes, m.usedBytes)
	m.buffers++
	return nil
}

// Free returns size bytes reserved by Reserve.
func (m *MemoryManager) Free(size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.buffers == 0 {
		return
	}
	m.usedBytes -= min(size, m.usedBytes)
	m.buffers--
}

// Stats returns current memory usage statistics.
func (m *MemoryManager) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		TotalBytes:  m.budgetBytes,
		UsedBytes:   m.usedBytes,
		PeakBytes:   m.peakBytes,
		BufferCount: m.buffers,
		Utilization: utilization,
	}
}

// Close marks the manager closed. Later reservations fail.
func (m *MemoryManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.usedBytes = 0
	m.buffers = 0
}
