package device

import (
	"context"
	"runtime"
)

// RuntimeMemoryProbe reads heap pressure from the Go runtime. UsedBytes is
// the live heap, TotalBytes the memory obtained from the OS.
type RuntimeMemoryProbe struct{}

// NewRuntimeMemoryProbe creates a memory probe backed by runtime.MemStats.
func NewRuntimeMemoryProbe() *RuntimeMemoryProbe {
	return &RuntimeMemoryProbe{}
}

func (p *RuntimeMemoryProbe) Memory(_ context.Context) (MemoryStatus, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStatus{
		UsedBytes:  m.HeapAlloc,
		TotalBytes: m.Sys,
	}, nil
}
