package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// BitOffsets returns rounds positions in [0, bits) for data.
// The positions are derived with double hashing from a single 128-bit murmur3 hash (seed 0):
// offset_i = (lower + i*upper) mod bits, where lower and upper are the two 64-bit halves.
func BitOffsets(data []byte, rounds int, bits uint64) []uint64 {
	if bits == 0 || rounds <= 0 {
		return nil
	}
	lower, upper := murmur3.Sum128WithSeed(data, 0)
	offsets := make([]uint64, rounds)
	combined := lower
	for i := range offsets {
		offsets[i] = (combined & math.MaxInt64) % bits
		combined += upper
	}
	return offsets
}
