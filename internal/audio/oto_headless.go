//go:build headless

package audio

import "errors"

// OtoDevice is unavailable in headless builds.
type OtoDevice struct {
	NullDevice
}

func NewOtoDevice(rate, channels, bufferFrames int) (*OtoDevice, error) {
	return nil, errors.New("speaker output not available in headless build")
}

func (d *OtoDevice) Starved() int64 { return 0 }

func (d *OtoDevice) Close() error { return nil }
