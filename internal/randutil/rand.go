// Package randutil turns a single int64 seed into a shuffle RNG, so a
// whole server run (and every table engine in it) can be replayed from
// one logged number.
package randutil

import (
	"encoding/binary"
	rand "math/rand/v2"
)

// New returns a *rand.Rand whose sequence is fully determined by seed.
// The seed is stretched into the 32-byte key ChaCha8 wants through a
// splitmix64 chain, so adjacent seeds still produce unrelated streams.
func New(seed int64) *rand.Rand {
	var key [32]byte
	x := uint64(seed)
	for i := 0; i < len(key); i += 8 {
		x = mix(x)
		binary.LittleEndian.PutUint64(key[i:], x)
	}
	return rand.New(rand.NewChaCha8(key))
}

// mix is the splitmix64 finaliser.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
