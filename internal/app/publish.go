package app

import (
	"strconv"
	"strings"

	"github.com/guidoenr/tonescope/internal/analyzer"
)

// Publisher receives everything the controller makes visible. Calls come from
// the loop goroutine and must not block.
type Publisher interface {
	PublishFeatures(f analyzer.FrameFeatures)
	PublishState(s Status)
	ReportError(err error)
}

// Publishers fans out to each publisher in order.
type Publishers []Publisher

func (ps Publishers) PublishFeatures(f analyzer.FrameFeatures) {
	for _, p := range ps {
		p.PublishFeatures(f)
	}
}

func (ps Publishers) PublishState(s Status) {
	for _, p := range ps {
		p.PublishState(s)
	}
}

func (ps Publishers) ReportError(err error) {
	for _, p := range ps {
		p.ReportError(err)
	}
}

// StatusSink shows one line of text, like the terminal status row or a
// window title.
type StatusSink interface {
	SetStatus(text string)
}

const meterWidth = 10

// StatusLine renders the controller state into a StatusSink.
type StatusLine struct {
	sink     StatusSink
	device   string
	status   Status
	features analyzer.FrameFeatures
	alert    string
	builder  strings.Builder
}

// NewStatusLine writes to sink; device, when set, is appended as the mic name.
func NewStatusLine(sink StatusSink, device string) *StatusLine {
	return &StatusLine{sink: sink, device: device}
}

func (s *StatusLine) PublishFeatures(f analyzer.FrameFeatures) {
	s.features = f
	s.sink.SetStatus(s.Text())
}

func (s *StatusLine) PublishState(st Status) {
	s.status = st
	s.features = st.Features
	if st.Capturing {
		s.alert = ""
	}
	s.sink.SetStatus(s.Text())
}

func (s *StatusLine) ReportError(err error) {
	s.alert = AlertMessage(err)
	s.sink.SetStatus(s.Text())
}

// Text formats the current line, for example
// "LIVE | Frequency Spectrum | peak 440 Hz | centroid 1200 Hz | vol 12% [#         ]".
func (s *StatusLine) Text() string {
	b := &s.builder
	b.Reset()
	b.WriteString(s.status.State.Label())
	b.WriteString(" | ")
	b.WriteString(s.status.View.Label())

	if s.status.Capturing {
		b.WriteString(" | peak ")
		b.WriteString(strconv.Itoa(s.features.PeakFrequencyHz))
		b.WriteString(" Hz | centroid ")
		b.WriteString(strconv.Itoa(s.features.SpectralCentroidHz))
		b.WriteString(" Hz | vol ")
		b.WriteString(strconv.Itoa(s.features.VolumePercent))
		b.WriteString("% ")
		writeMeter(b, s.features.VolumePercent)
	} else {
		b.WriteString(" | space to start, q to quit")
	}

	if s.device != "" {
		b.WriteString(" | mic=")
		b.WriteString(s.device)
	}
	if s.alert != "" {
		b.WriteString(" | ! ")
		b.WriteString(s.alert)
	}
	return b.String()
}

func writeMeter(b *strings.Builder, percent int) {
	filled := percent * meterWidth / 100
	if filled < 0 {
		filled = 0
	} else if filled > meterWidth {
		filled = meterWidth
	}
	b.WriteByte('[')
	b.WriteString(strings.Repeat("#", filled))
	b.WriteString(strings.Repeat(" ", meterWidth-filled))
	b.WriteByte(']')
}
