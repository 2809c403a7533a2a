package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/guidoenr/tonescope/internal/capture"
)

// classify maps a PortAudio failure onto the acquisition error taxonomy.
// Missing or busy devices are DeviceUnavailable; anything else the host
// refused while opening or starting the stream counts as PermissionDenied.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, capture.ErrPermissionDenied) || errors.Is(err, capture.ErrDeviceUnavailable) {
		return err
	}
	var paErr portaudio.Error
	if errors.As(err, &paErr) {
		switch paErr {
		case portaudio.InvalidDevice, portaudio.DeviceUnavailable, portaudio.NotInitialized:
			return fmt.Errorf("%w: %s: %v", capture.ErrDeviceUnavailable, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", capture.ErrPermissionDenied, op, err)
}
