package ffmpeg

import "sync/atomic"

// CapabilityCache holds the latest GPU probe result. The probe runs in the
// background at startup and can be re-run on demand, so readers take a
// snapshot rather than a lock.
type CapabilityCache struct {
	v atomic.Pointer[Capabilities]
}

// NewCapabilityCache starts with an empty capability set: no hardware
// encoders until a probe has finished.
func NewCapabilityCache() *CapabilityCache {
	c := &CapabilityCache{}
	c.v.Store(&Capabilities{GPUVendor: GPUVendorNone})
	return c
}

func (c *CapabilityCache) Get() *Capabilities { return c.v.Load() }

func (c *CapabilityCache) Set(caps *Capabilities) { c.v.Store(caps) }
