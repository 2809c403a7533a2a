package audio

import "sync"

// Ring keeps the most recent mono samples delivered by an input callback.
// Writers run on the host audio thread; readers copy out under the lock.
type Ring struct {
	mu      sync.Mutex
	buffer  []float32
	index   int
	written uint64
	mono    []float32
}

// NewRing allocates a ring holding size samples.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = defaultRingSize
	}
	return &Ring{buffer: make([]float32, size)}
}

// Write appends interleaved samples, averaging channels down to mono.
func (r *Ring) Write(in []float32, channels int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if channels > 1 {
		frames := len(in) / channels
		if cap(r.mono) < frames {
			r.mono = make([]float32, frames)
		}
		mono := r.mono[:frames]
		for i := range mono {
			sum := float32(0)
			base := i * channels
			for ch := 0; ch < channels; ch++ {
				sum += in[base+ch]
			}
			mono[i] = sum / float32(channels)
		}
		r.mix(mono)
		return
	}

	r.mix(in)
}

// Latest copies the newest len(dst) samples into dst, oldest first, and
// returns the total number of samples ever written. Callers compare the
// counter between reads to detect that nothing new has arrived.
func (r *Ring) Latest(dst []float32) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buffer)
	n := len(dst)
	if n > size {
		clear(dst[size:])
		n = size
	}

	start := r.index - n
	if start < 0 {
		start += size
	}
	if start+n <= size {
		copy(dst[:n], r.buffer[start:start+n])
	} else {
		head := copy(dst, r.buffer[start:])
		copy(dst[head:n], r.buffer[:n-head])
	}
	return r.written
}

func (r *Ring) mix(in []float32) {
	if len(in) == 0 {
		return
	}
	r.written += uint64(len(in))

	if len(in) >= len(r.buffer) {
		copy(r.buffer, in[len(in)-len(r.buffer):])
		r.index = 0
		return
	}

	if r.index+len(in) <= len(r.buffer) {
		copy(r.buffer[r.index:], in)
		r.index += len(in)
		if r.index == len(r.buffer) {
			r.index = 0
		}
		return
	}

	remaining := len(r.buffer) - r.index
	copy(r.buffer[r.index:], in[:remaining])
	copy(r.buffer, in[remaining:])
	r.index = len(in) - remaining
}
