package bloom

import (
	"strconv"
)

// MaxBitsInSlot is the width of one slot. Redis strings are limited to 512MB, i.e. 2^32 bits.
const MaxBitsInSlot uint64 = 1 << 32

// SlotOf maps a filter-wide offset to a slot index and the offset inside that slot.
func SlotOf(offset, slotBits uint64) (slot, local uint64) {
	return offset / slotBits, offset % slotBits
}

// StatKey is the key of the hash keeping filter parameters and the insertions counter.
// The braces make it a cluster hash tag: all the keys of one filter live in the same hash slot.
func StatKey(name string) string {
	return "{" + name + "}"
}

func SlotKey(name string, slot uint64) string {
	return StatKey(name) + "_" + strconv.FormatUint(slot, 10)
}

func SlotKeys(name string, slotNumber uint64) []string {
	keys := make([]string, 0, slotNumber)
	for i := uint64(0); i < slotNumber; i++ {
		keys = append(keys, SlotKey(name, i))
	}
	return keys
}
