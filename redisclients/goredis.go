package redisclients

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type goRedisClient struct {
	client       redis.UniversalClient
	transactions bool
}

func NewGoRedisClient(client redis.UniversalClient) RedisClient {
	return &goRedisClient{client: client, transactions: true}
}

// NewGoRedisClientWithoutTransactions never sends MULTI/EXEC, even for transactional batches.
// Use it for proxies or setups where transactions aren't available.
func NewGoRedisClientWithoutTransactions(client redis.UniversalClient) RedisClient {
	return &goRedisClient{client: client}
}

func (g *goRedisClient) HGet(ctx context.Context, key, field string) (string, bool, error) {
	value, err := g.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (g *goRedisClient) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	return g.client.HIncrBy(ctx, key, field, incr).Result()
}

func (g *goRedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return g.client.Exists(ctx, keys...).Result()
}

func (g *goRedisClient) Pipeliner(ctx context.Context, transactional bool) Pipeliner {
	var pipeliner redis.Pipeliner
	if transactional && g.transactions {
		pipeliner = g.client.TxPipeline()
	} else {
		pipeliner = g.client.Pipeline()
	}
	return &goRedisPipeliner{
		ctx:       ctx,
		pipeliner: pipeliner,
	}
}

type goRedisPipeliner struct {
	ctx       context.Context
	pipeliner redis.Pipeliner
	cmds      []*redis.IntCmd
}

func (g *goRedisPipeliner) Del(keys ...string) Pipeliner {
	g.cmds = append(g.cmds, g.pipeliner.Del(g.ctx, keys...))
	return g
}

func (g *goRedisPipeliner) HSet(key string, values ...interface{}) Pipeliner {
	g.cmds = append(g.cmds, g.pipeliner.HSet(g.ctx, key, values...))
	return g
}

func (g *goRedisPipeliner) SetBit(key string, offset uint64, value int) Pipeliner {
	g.cmds = append(g.cmds, g.pipeliner.SetBit(g.ctx, key, int64(offset), value))
	return g
}

func (g *goRedisPipeliner) GetBit(key string, offset uint64) Pipeliner {
	g.cmds = append(g.cmds, g.pipeliner.GetBit(g.ctx, key, int64(offset)))
	return g
}

func (g *goRedisPipeliner) Len() int {
	return len(g.cmds)
}

func (g *goRedisPipeliner) Exec() ([]int64, error) {
	if len(g.cmds) == 0 {
		return nil, nil
	}
	_, execErr := g.pipeliner.Exec(g.ctx)

	var batchErr *multierror.Error
	replies := make([]int64, len(g.cmds))
	for idx, cmd := range g.cmds {
		if cmdErr := cmd.Err(); cmdErr != nil {
			batchErr = multierror.Append(batchErr, errors.Wrapf(cmdErr, "command #%d %q failed", idx, cmd.Name()))
			continue
		}
		replies[idx] = cmd.Val()
	}
	if execErr != nil && batchErr.ErrorOrNil() == nil {
		batchErr = multierror.Append(batchErr, execErr)
	}
	if err := batchErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return replies, nil
}

var _ RedisClient = &goRedisClient{}
var _ Pipeliner = &goRedisPipeliner{}
