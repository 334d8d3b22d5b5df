// Package windowsize picks FFT window lengths from the set of sizes that
// available FFT kernels handle fastest: integers of the form 2^a * 3^b.
package windowsize

import "fmt"

// sizes holds every 2^a * 3^b value with a >= 1 and b >= 1 in [6, 36864],
// ascending: enumerate the exponents and sort.
var sizes = [...]int{
	6, 12, 18, 24, 36, 48, 54, 72, 96, 108, 144, 162, 192, 216, 288, 324, 384,
	432, 486, 576, 648, 768, 864, 972, 1152, 1296, 1458, 1536, 1728, 1944,
	2304, 2592, 2916, 3072, 3456, 3888, 4374, 4608, 5184, 5832, 6144, 6912,
	7776, 8748, 9216, 10368, 11664, 12288, 13122, 13824, 15552, 17496, 18432,
	20736, 23328, 24576, 26244, 27648, 31104, 34992, 36864,
}

// Ideal returns the smallest recognised window size that is >= minWindow.
func Ideal(minWindow int) (int, error) {
	for _, w := range sizes {
		if w >= minWindow {
			return w, nil
		}
	}

	return 0, fmt.Errorf("no ideal window size for minimum window of %d samples", minWindow)
}

// MinWindow derives the minimum window length needed to steer frequencies as
// low as lowestHz at the given sample rate, rounded up.
func MinWindow(sampleRate int, lowestHz float64) int {
	min := float64(sampleRate) / lowestHz
	w := int(min)
	if float64(w) < min {
		w++
	}
	return w
}
