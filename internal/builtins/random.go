package builtins

import (
	"crypto/rand"
	"math/big"
)

// secureRandomIndex returns a uniform random index in [0, n) using
// crypto/rand, backing the randomString built-in (spec.md §4.6).
func secureRandomIndex(n int) int {
	max := big.NewInt(int64(n))
	idx, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(idx.Int64())
}
