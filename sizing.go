package bloom

import (
	"math"
)

// MinFalsePositiveRate replaces a zero false positive rate, ln(0) is undefined.
const MinFalsePositiveRate = 0.0000000000000001

// BitsNumber returns the optimal bit array length for n expected insertions
// with the false positive rate p: floor(-n*ln(p)/ln(2)^2) kept in the signed 64-bit range.
func BitsNumber(n int64, p float64) uint64 {
	if p == 0 {
		p = MinFalsePositiveRate
	}
	bits := math.Trunc(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if bits <= 0 || math.IsNaN(bits) {
		return 0
	}
	// the same as masking with math.MaxInt64 but without an undefined float->int conversion
	return uint64(math.Mod(bits, 1<<63))
}

// HashRounds returns the optimal number of hash functions: max(1, round(bits/n*ln(2))).
func HashRounds(n int64, bits uint64) int {
	if n <= 0 {
		return 1
	}
	rounds := int(math.RoundToEven(float64(bits) / float64(n) * math.Ln2))
	if rounds < 1 {
		return 1
	}
	return rounds
}

// SlotNumber returns how many slots of slotBits width hold bits.
func SlotNumber(bits, slotBits uint64) uint64 {
	return (bits + slotBits - 1) / slotBits
}
