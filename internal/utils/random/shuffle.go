package random

import "math/rand"

// Shuffle permutes the slice in place with the Fisher-Yates algorithm driven
// by the provided source. The same source state always yields the same
// permutation, which is what makes draws reproducible under a fixed seed.
func Shuffle[T any](slice []T, rng *rand.Rand) {
	for i := len(slice) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		slice[i], slice[j] = slice[j], slice[i]
	}
}
