package bloom

import (
	"context"
	"encoding/binary"
)

func (r *RedisBloom) PutString(ctx context.Context, data string) error {
	return r.Put(ctx, []byte(data))
}

func (r *RedisBloom) PutUint16(ctx context.Context, i uint16) error {
	return r.Put(ctx, uint16Key(i))
}

func (r *RedisBloom) PutUint32(ctx context.Context, i uint32) error {
	return r.Put(ctx, uint32Key(i))
}

func (r *RedisBloom) PutUint64(ctx context.Context, i uint64) error {
	return r.Put(ctx, uint64Key(i))
}

func (r *RedisBloom) ContainsString(ctx context.Context, data string) (bool, error) {
	return r.Contains(ctx, []byte(data))
}

func (r *RedisBloom) ContainsUint16(ctx context.Context, i uint16) (bool, error) {
	return r.Contains(ctx, uint16Key(i))
}

func (r *RedisBloom) ContainsUint32(ctx context.Context, i uint32) (bool, error) {
	return r.Contains(ctx, uint32Key(i))
}

func (r *RedisBloom) ContainsUint64(ctx context.Context, i uint64) (bool, error) {
	return r.Contains(ctx, uint64Key(i))
}

// Integers are encoded big-endian, so the same number put as uint16 and as uint32 are different keys.

func uint16Key(i uint16) []byte {
	var data [2]byte
	binary.BigEndian.PutUint16(data[:], i)
	return data[:]
}

func uint32Key(i uint32) []byte {
	var data [4]byte
	binary.BigEndian.PutUint32(data[:], i)
	return data[:]
}

func uint64Key(i uint64) []byte {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], i)
	return data[:]
}
