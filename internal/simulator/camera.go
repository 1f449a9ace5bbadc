package simulator

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoCamera is reported when the flash is toggled without a camera.
	ErrNoCamera = errors.New("no camera bound")
	// ErrNoFlashUnit is reported when the bound camera has no torch.
	ErrNoFlashUnit = errors.New("camera has no flash unit")
)

// Camera is the torch capability of the device camera.
type Camera interface {
	HasFlashUnit() bool
	EnableTorch(enabled bool) error
}

// TorchError is returned by ToggleFlash. The session keeps running.
type TorchError struct {
	Enabled bool
	Err     error
}

func (e *TorchError) Error() string {
	state := "off"
	if e.Enabled {
		state = "on"
	}
	return fmt.Sprintf("turn torch %s: %v", state, e.Err)
}

func (e *TorchError) Unwrap() error { return e.Err }

// NoopCamera is a camera without a flash unit.
type NoopCamera struct{}

func (NoopCamera) HasFlashUnit() bool     { return false }
func (NoopCamera) EnableTorch(bool) error { return ErrNoFlashUnit }

// VirtualCamera keeps torch state in memory.
type VirtualCamera struct {
	mu       sync.Mutex
	flash    bool
	torchOn  bool
	failWith error
}

// NewVirtualCamera creates a virtual camera; flash says whether it has a torch.
func NewVirtualCamera(flash bool) *VirtualCamera {
	return &VirtualCamera{flash: flash}
}

func (c *VirtualCamera) HasFlashUnit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flash
}

func (c *VirtualCamera) EnableTorch(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.torchOn = enabled
	return nil
}

// TorchOn reports the current torch state.
func (c *VirtualCamera) TorchOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.torchOn
}

// FailWith makes every following EnableTorch call return err; nil clears it.
func (c *VirtualCamera) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}
