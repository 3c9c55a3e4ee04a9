package redisclients

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// maxBitOffset mirrors the Redis limit for SETBIT/GETBIT offsets (512MB strings).
const maxBitOffset = 1<<32 - 1

var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
var ErrBitOffsetOutOfRange = errors.New("ERR bit offset is not an integer or out of range")
var ErrHashValueNotInteger = errors.New("ERR hash value is not an integer")

// InMemoryClient is a process-local RedisClient. Bit strings are kept in bitsets and hashes in maps.
// Every batch is applied under a single lock, so batches are atomic with respect to each other.
type InMemoryClient struct {
	strings map[string]*bitset.BitSet
	hashes  map[string]map[string]string
	mu      sync.Mutex
}

func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{
		strings: map[string]*bitset.BitSet{},
		hashes:  map[string]map[string]string{},
	}
}

func (m *InMemoryClient) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, isString := m.strings[key]; isString {
		return "", false, ErrWrongType
	}
	value, exists := m.hashes[key][field]
	return value, exists, nil
}

func (m *InMemoryClient) HIncrBy(_ context.Context, key, field string, incr int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, isString := m.strings[key]; isString {
		return 0, ErrWrongType
	}
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	var current int64
	if raw, exists := h[field]; exists {
		parsed, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return 0, ErrHashValueNotInteger
		}
		current = parsed
	}
	current += incr
	h[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *InMemoryClient) Exists(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, key := range keys {
		if m.exists(key) {
			count++
		}
	}
	return count, nil
}

// BitLen returns the number of addressable bits of a string key (0 if it doesn't exist).
func (m *InMemoryClient) BitLen(key string) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bs, exists := m.strings[key]; exists {
		return bs.Len()
	}
	return 0
}

func (m *InMemoryClient) Pipeliner(ctx context.Context, _ bool) Pipeliner {
	return &inMemoryPipeliner{ctx: ctx, store: m}
}

func (m *InMemoryClient) exists(key string) bool {
	if _, exists := m.strings[key]; exists {
		return true
	}
	_, exists := m.hashes[key]
	return exists
}

func (m *InMemoryClient) del(keys ...string) (int64, error) {
	var deleted int64
	for _, key := range keys {
		if m.exists(key) {
			deleted++
		}
		delete(m.strings, key)
		delete(m.hashes, key)
	}
	return deleted, nil
}

func (m *InMemoryClient) hset(key string, values ...interface{}) (int64, error) {
	if len(values) == 0 || len(values)%2 != 0 {
		return 0, errors.New("ERR wrong number of arguments for 'hset' command")
	}
	if _, isString := m.strings[key]; isString {
		return 0, ErrWrongType
	}
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	var added int64
	for i := 0; i < len(values); i += 2 {
		field := fmt.Sprint(values[i])
		if _, exists := h[field]; !exists {
			added++
		}
		h[field] = fmt.Sprint(values[i+1])
	}
	return added, nil
}

func (m *InMemoryClient) setBit(key string, offset uint64, value int) (int64, error) {
	if offset > maxBitOffset {
		return 0, ErrBitOffsetOutOfRange
	}
	if value != 0 && value != 1 {
		return 0, errors.New("ERR bit is not an integer or out of range")
	}
	if _, isHash := m.hashes[key]; isHash {
		return 0, ErrWrongType
	}
	bs := m.strings[key]
	if bs == nil {
		bs = bitset.New(0)
		m.strings[key] = bs
	}
	i := uint(offset)
	var previous int64
	if bs.Test(i) {
		previous = 1
	}
	// Set grows the bitset, so clearing a bit also allocates the string up to the offset
	bs.Set(i)
	if value == 0 {
		bs.Clear(i)
	}
	return previous, nil
}

func (m *InMemoryClient) getBit(key string, offset uint64) (int64, error) {
	if offset > maxBitOffset {
		return 0, ErrBitOffsetOutOfRange
	}
	if _, isHash := m.hashes[key]; isHash {
		return 0, ErrWrongType
	}
	if bs := m.strings[key]; bs != nil && bs.Test(uint(offset)) {
		return 1, nil
	}
	return 0, nil
}

type inMemoryCmd struct {
	name string
	run  func() (int64, error)
}

type inMemoryPipeliner struct {
	ctx   context.Context
	store *InMemoryClient
	cmds  []inMemoryCmd
}

func (p *inMemoryPipeliner) Del(keys ...string) Pipeliner {
	p.cmds = append(p.cmds, inMemoryCmd{name: "del", run: func() (int64, error) {
		return p.store.del(keys...)
	}})
	return p
}

func (p *inMemoryPipeliner) HSet(key string, values ...interface{}) Pipeliner {
	p.cmds = append(p.cmds, inMemoryCmd{name: "hset", run: func() (int64, error) {
		return p.store.hset(key, values...)
	}})
	return p
}

func (p *inMemoryPipeliner) SetBit(key string, offset uint64, value int) Pipeliner {
	p.cmds = append(p.cmds, inMemoryCmd{name: "setbit", run: func() (int64, error) {
		return p.store.setBit(key, offset, value)
	}})
	return p
}

func (p *inMemoryPipeliner) GetBit(key string, offset uint64) Pipeliner {
	p.cmds = append(p.cmds, inMemoryCmd{name: "getbit", run: func() (int64, error) {
		return p.store.getBit(key, offset)
	}})
	return p
}

func (p *inMemoryPipeliner) Len() int {
	return len(p.cmds)
}

func (p *inMemoryPipeliner) Exec() ([]int64, error) {
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	var batchErr *multierror.Error
	replies := make([]int64, len(p.cmds))
	for idx, cmd := range p.cmds {
		reply, err := cmd.run()
		if err != nil {
			batchErr = multierror.Append(batchErr, errors.Wrapf(err, "command #%d %q failed", idx, cmd.name))
			continue
		}
		replies[idx] = reply
	}
	if err := batchErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return replies, nil
}

var _ RedisClient = &InMemoryClient{}
var _ Pipeliner = &inMemoryPipeliner{}
