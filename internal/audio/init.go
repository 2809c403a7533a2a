package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/guidoenr/tonescope/internal/capture"
)

var (
	initOnce    sync.Once
	termOnce    sync.Once
	initErr     error
	initialized bool
)

// Initialize brings up the PortAudio host layer once per process. A failure
// means no input device can ever be opened, so it is reported as
// capture.ErrDeviceUnavailable.
func Initialize() error {
	initOnce.Do(func() {
		if err := portaudio.Initialize(); err != nil {
			initErr = fmt.Errorf("%w: initialize portaudio: %v", capture.ErrDeviceUnavailable, err)
			return
		}
		initialized = true
	})
	return initErr
}

// Terminate balances a successful Initialize and is a no-op otherwise.
func Terminate() {
	if !initialized {
		return
	}
	termOnce.Do(func() {
		_ = portaudio.Terminate()
	})
}
