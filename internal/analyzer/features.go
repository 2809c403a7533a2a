package analyzer

import "math"

// FrameFeatures is what one frame publishes to the presentation layer.
type FrameFeatures struct {
	PeakFrequencyHz    int `json:"peakFrequencyHz"`
	SpectralCentroidHz int `json:"centroidHz"`
	VolumePercent      int `json:"volumePercent"`
}

// Extract derives FrameFeatures from one frequency snapshot. Bin i sits at
// i*sampleRateHz/transformSize. The peak is the first bin holding the
// maximum, the centroid is the magnitude-weighted mean frequency (0 for
// silence), and volume is the mean magnitude as a percentage of
// MaxMagnitude. Volume is an energy proxy, not RMS loudness.
func Extract(freq FrequencySnapshot, sampleRateHz float64, transformSize int) FrameFeatures {
	if len(freq) == 0 || transformSize <= 0 {
		return FrameFeatures{}
	}
	binWidth := sampleRateHz / float64(transformSize)

	var (
		weighted float64
		total    int
		maxVal   uint8
		peakIdx  int
	)
	for i, mag := range freq {
		weighted += float64(i) * binWidth * float64(mag)
		total += int(mag)
		if mag > maxVal {
			maxVal = mag
			peakIdx = i
		}
	}

	out := FrameFeatures{
		PeakFrequencyHz: int(math.Round(float64(peakIdx) * binWidth)),
		VolumePercent:   int(math.Round(100 * float64(total) / float64(len(freq)*MaxMagnitude))),
	}
	if total > 0 {
		out.SpectralCentroidHz = int(math.Round(weighted / float64(total)))
	}
	return out
}
