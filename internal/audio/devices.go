package audio

import (
	"fmt"
	"sort"

	"github.com/gordonklaus/portaudio"
)

// Device describes an input-capable PortAudio device.
type Device struct {
	Name            string
	HostAPI         string
	Channels        int
	DefaultSampleHz float64
	IsDefault       bool
}

func (d Device) String() string {
	marker := ""
	if d.IsDefault {
		marker = " (default)"
	}
	return fmt.Sprintf("%s [%s]%s inputs:%d sample:%.0f Hz", d.Name, d.HostAPI, marker, d.Channels, d.DefaultSampleHz)
}

// ListDevices returns input devices across host APIs sorted by host and name.
func ListDevices() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, classify("host apis", err)
	}

	defaultInputIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultInputIndex = def.Index
	}

	devices := make([]Device, 0, len(hosts)*4)
	for _, host := range hosts {
		for _, d := range host.Devices {
			if d.MaxInputChannels <= 0 {
				continue
			}
			devices = append(devices, Device{
				Name:            d.Name,
				HostAPI:         host.Name,
				Channels:        d.MaxInputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				IsDefault:       d.Index == defaultInputIndex,
			})
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})

	return devices, nil
}
