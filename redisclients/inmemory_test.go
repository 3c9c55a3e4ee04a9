package redisclients

import (
	"context"
	"testing"

	"github.com/hashicorp/go-multierror"
	requireLib "github.com/stretchr/testify/require"
)

func TestInMemoryBits(t *testing.T) {
	require := requireLib.New(t)
	ctx := context.Background()
	client := NewInMemoryClient()

	replies, err := client.Pipeliner(ctx, true).
		SetBit("bits", 10, 1).
		SetBit("bits", 10, 1).
		GetBit("bits", 10).
		GetBit("bits", 11).
		GetBit("missing", 3).
		SetBit("bits", 10, 0).
		GetBit("bits", 10).
		Exec()
	require.NoError(err)
	require.Equal([]int64{0, 1, 1, 0, 0, 1, 0}, replies)
	require.Equal(uint(11), client.BitLen("bits"))

	_, err = client.Pipeliner(ctx, false).SetBit("allocated", 99, 0).Exec()
	require.NoError(err)
	require.Equal(uint(100), client.BitLen("allocated"), "clearing a bit allocates the string")
	exists, err := client.Exists(ctx, "allocated", "bits", "missing")
	require.NoError(err)
	require.Equal(int64(2), exists)
}

func TestInMemoryHashes(t *testing.T) {
	require := requireLib.New(t)
	ctx := context.Background()
	client := NewInMemoryClient()

	_, exists, err := client.HGet(ctx, "stat", "field")
	require.NoError(err)
	require.False(exists)

	replies, err := client.Pipeliner(ctx, true).HSet("stat", "a", "1", "b", 0.5).HSet("stat", "a", "2").Exec()
	require.NoError(err)
	require.Equal([]int64{2, 0}, replies)

	value, exists, err := client.HGet(ctx, "stat", "b")
	require.NoError(err)
	require.True(exists)
	require.Equal("0.5", value)

	counter, err := client.HIncrBy(ctx, "stat", "counter", 1)
	require.NoError(err)
	require.Equal(int64(1), counter)
	counter, err = client.HIncrBy(ctx, "stat", "a", 3)
	require.NoError(err)
	require.Equal(int64(5), counter)

	_, err = client.HIncrBy(ctx, "stat", "b", 1)
	require.ErrorIs(err, ErrHashValueNotInteger)

	deleted, err := client.Pipeliner(ctx, true).Del("stat", "missing").Exec()
	require.NoError(err)
	require.Equal([]int64{1}, deleted)
	_, exists, err = client.HGet(ctx, "stat", "a")
	require.NoError(err)
	require.False(exists)
}

func TestInMemoryBatchErrors(t *testing.T) {
	require := requireLib.New(t)
	ctx := context.Background()
	client := NewInMemoryClient()

	_, err := client.Pipeliner(ctx, true).
		HSet("stat", "a", "1").
		SetBit("stat", 1, 1).
		GetBit("bits", maxBitOffset+1).
		SetBit("bits", 1, 1).
		Exec()
	require.Error(err)
	var batchErr *multierror.Error
	require.ErrorAs(err, &batchErr)
	require.Len(batchErr.Errors, 2, "every failed command is reported")
	require.ErrorIs(batchErr.Errors[0], ErrWrongType)
	require.ErrorIs(batchErr.Errors[1], ErrBitOffsetOutOfRange)

	_, _, err = client.HGet(ctx, "bits", "a")
	require.ErrorIs(err, ErrWrongType)
}

func TestInMemoryCanceledContext(t *testing.T) {
	require := requireLib.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewInMemoryClient().Pipeliner(ctx, true).SetBit("bits", 1, 1).Exec()
	require.ErrorIs(err, context.Canceled)
}
