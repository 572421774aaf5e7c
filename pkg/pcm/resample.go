package pcm

import "math"

// Resample converts samples from one rate to another by averaging fixed
// windows of input samples. Block averaging trades filtering quality for
// latency, which is sufficient for speech. When fromRate < toRate the
// windows shrink to a single sample and the result approximates nearest
// neighbor.
//
// When the rates are equal the input buffer is returned unchanged.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate {
		return samples
	}
	if len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(math.Round(float64(len(samples)) / ratio))
	if newLen == 0 {
		return []float32{}
	}

	result := make([]float32, newLen)
	offset := 0
	for i := range result {
		next := int(math.Round(float64(i+1) * ratio))
		var sum float64
		count := 0
		for j := offset; j < next && j < len(samples); j++ {
			sum += float64(samples[j])
			count++
		}
		if count > 0 {
			result[i] = float32(sum / float64(count))
		}
		offset = next
	}
	return result
}
