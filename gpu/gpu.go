//go:build !nogpu

// Package gpu provides the GPU texpack.Executor.
//
// The executor runs both packing passes as wgpu/hal compute shaders on
// Vulkan. It can open its own device or share one with a host application
// through a gpucontext.DeviceProvider.
//
// Usage:
//
//	exec, err := gpu.NewExecutor(gpu.Config{})
//	if err != nil {
//		// no GPU; use texpack.NewSoftwareExecutor
//	}
//	defer exec.Close()
//	p := texpack.New(exec)
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/texpack"
	gpuimpl "github.com/gogpu/texpack/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Config configures an Executor. See the field docs on the internal type.
type Config = gpuimpl.Config

// Executor is a texpack.Executor backed by a GPU device.
type Executor = gpuimpl.Executor

// MemoryStats reports target memory accounting.
type MemoryStats = gpuimpl.MemoryStats

var (
	// ErrNilProvider is returned for a nil DeviceProvider.
	ErrNilProvider = errors.New("gpu: nil DeviceProvider")

	// ErrNoHAL is returned when a provider does not expose HAL types.
	ErrNoHAL = errors.New("gpu: provider does not expose HAL types")

	// ErrMemoryBudgetExceeded is returned by NewImage when a target does
	// not fit the memory budget.
	ErrMemoryBudgetExceeded = gpuimpl.ErrMemoryBudgetExceeded
)

// NewExecutor opens a GPU device and builds the packing pipelines.
func NewExecutor(cfg Config) (*Executor, error) {
	return gpuimpl.NewExecutor(cfg)
}

// NewExecutorWithDevice builds an executor on a HAL device owned by the
// caller.
func NewExecutorWithDevice(device hal.Device, queue hal.Queue, cfg Config) (*Executor, error) {
	return gpuimpl.NewExecutorWithDevice(device, queue, cfg)
}

// halProvider is implemented by device providers that expose their
// hal.Device and hal.Queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewExecutorFromProvider builds an executor on the device of a host
// application, e.g. gogpu. The provider must also implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewExecutorFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Executor, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return gpuimpl.NewExecutorWithDevice(device, queue, cfg)
}

// Closer is an Executor that holds resources until Close.
type Closer interface {
	texpack.Executor
	Close()
}

// NewExecutorOrSoftware returns a GPU executor, or a software executor
// with the given worker count when no GPU can be opened.
func NewExecutorOrSoftware(cfg Config, workers int) (exec Closer, gpu bool) {
	e, err := gpuimpl.NewExecutor(cfg)
	if err != nil {
		texpack.Logger().Warn("GPU executor not available, using software", "err", err)
		return texpack.NewSoftwareExecutor(texpack.SoftwareConfig{Workers: workers, SourceCacheMB: cfg.SourceCacheMB}), false
	}
	return e, true
}
