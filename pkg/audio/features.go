package audio

import (
	"encoding/binary"
	"math"
)

// decodePCM16 converts little-endian PCM16 bytes into normalized [-1, 1]
// samples. Input length must be even (validated by the gate).
func decodePCM16(pcm []byte) []float64 {
	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples
}

// extractFeatures computes the acoustic feature map for a speech frame.
// Frames are short (at most 30 ms) so the naive DFT is acceptable.
// Returns an empty map if the signal is unusable.
func extractFeatures(signal []float64, sampleRate, durationMs int) map[string]float64 {
	if len(signal) == 0 {
		return map[string]float64{}
	}

	features := map[string]float64{
		"duration_ms":        float64(durationMs),
		"rms_energy":         rms(signal),
		"zero_crossing_rate": zeroCrossingRate(signal),
	}

	centroid, rolloff, ok := spectralFeatures(signal, sampleRate)
	if ok {
		features["spectral_centroid"] = centroid
		features["spectral_rolloff"] = rolloff
	}
	return features
}

// rms returns the root-mean-square energy of a normalized signal.
func rms(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signal {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(signal)))
}

// zeroCrossingRate returns the fraction of adjacent sample pairs whose sign
// differs. High values indicate fricatives or synthetic audio artifacts.
func zeroCrossingRate(signal []float64) float64 {
	if len(signal) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(signal); i++ {
		if (signal[i-1] >= 0) != (signal[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(signal)-1)
}

// rolloffFraction is the cumulative-energy cutoff for spectral rolloff.
const rolloffFraction = 0.85

// spectralFeatures computes the spectral centroid and rolloff (Hz) from the
// magnitude spectrum of a naive DFT. ok is false when the spectrum carries
// no energy.
func spectralFeatures(signal []float64, sampleRate int) (centroid, rolloff float64, ok bool) {
	n := len(signal)
	if n < 2 {
		return 0, 0, false
	}

	bins := n/2 + 1
	magnitudes := make([]float64, bins)
	for k := 0; k < bins; k++ {
		var re, im float64
		for t, s := range signal {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += s * math.Cos(angle)
			im += s * math.Sin(angle)
		}
		magnitudes[k] = math.Hypot(re, im)
	}

	var total, weighted float64
	binHz := float64(sampleRate) / float64(n)
	for k, m := range magnitudes {
		total += m
		weighted += m * float64(k) * binHz
	}
	if total == 0 {
		return 0, 0, false
	}
	centroid = weighted / total

	var cum float64
	for k, m := range magnitudes {
		cum += m
		if cum >= rolloffFraction*total {
			rolloff = float64(k) * binHz
			break
		}
	}
	return centroid, rolloff, true
}
