package redisclients

import (
	"context"
)

type RedisClient interface {
	// HGet returns the value of a hash field and false if either the key or the field doesn't exist
	HGet(ctx context.Context, key, field string) (value string, exists bool, err error)
	// HIncrBy increments a hash field by incr and returns the new value
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)
	// Exists returns how many of the provided keys exist
	Exists(ctx context.Context, keys ...string) (int64, error)
	// Pipeliner starts a new batch. A transactional batch is executed atomically (MULTI/EXEC)
	// if the underlying client supports it.
	Pipeliner(ctx context.Context, transactional bool) Pipeliner
}

// Pipeliner collects commands and sends them in one round trip.
// Every supported command has an integer reply, so Exec returns one int64 per queued command
// in the order the commands were added.
type Pipeliner interface {
	Del(keys ...string) Pipeliner
	HSet(key string, values ...interface{}) Pipeliner
	// SetBit sets the bit at offset to value and replies with the previous bit value
	SetBit(key string, offset uint64, value int) Pipeliner
	GetBit(key string, offset uint64) Pipeliner
	Len() int
	// Exec sends the queued commands. If any command fails the returned error
	// aggregates all the failures.
	Exec() ([]int64, error)
}
