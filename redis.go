package bloom

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/vkuptcov/sharedbloom/redisclients"
)

const (
	fieldExpectedInsertions = "number_of_insertion"
	fieldFalsePositiveRate  = "error_rate"
	fieldInsertions         = "insertions"
)

type layout struct {
	bitsNumber uint64
	hashRounds int
	slotNumber uint64
}

func newLayout(fp FilterParams, slotBits uint64) layout {
	bits := BitsNumber(fp.ExpectedInsertions, fp.FalsePositiveRate)
	return layout{
		bitsNumber: bits,
		hashRounds: HashRounds(fp.ExpectedInsertions, bits),
		slotNumber: SlotNumber(bits, slotBits),
	}
}

// RedisBloom is a bloom filter kept in Redis and shared by every client using the same name.
// The bit array is split into slots of MaxBitsInSlot bits, each slot is a separate Redis string.
// Parameters and the approximate insertions counter are kept in a Redis hash.
//
// Initialize must be called before any other operation; after Destroy the handle can't be used anymore.
type RedisBloom struct {
	redisClient redisclients.RedisClient
	name        string
	config      Config
	slotBits    uint64

	// guarded by lifecycle.mu until the filter is initialized, immutable afterwards
	filterParams FilterParams
	layout       layout

	lifecycle lifecycle
	hooks     *Hooks
	logger    Logger
}

// NewRedisBloom returns an uninitialized handle for the filter called name; nothing is sent to Redis until Initialize.
func NewRedisBloom(
	redisClient redisclients.RedisClient,
	name string,
	filterParams FilterParams,
	config Config,
) *RedisBloom {
	return &RedisBloom{
		redisClient:  redisClient,
		name:         name,
		config:       config,
		slotBits:     MaxBitsInSlot,
		filterParams: filterParams,
		hooks:        NewHooks(),
		logger:       StdLogger(nil),
	}
}

// SetHooks replaces the stage hooks, nil disables them. Call it before the filter is shared between goroutines.
func (r *RedisBloom) SetHooks(hooks *Hooks) {
	r.hooks = hooks
}

// SetLogger replaces the logger used for swallowed counter errors and retried batches.
func (r *RedisBloom) SetLogger(logger Logger) {
	r.logger = logger
}

// Initialize creates the filter in Redis or adopts an existing one with the same name.
// When adopting, the stored parameters override the local ones.
func (r *RedisBloom) Initialize(ctx context.Context) error {
	return r.lifecycle.initialize(func() (err error) {
		r.hooks.Before(Initialize, r.name)
		defer func() {
			r.hooks.After(Initialize, err, r.name)
		}()

		rawInsertions, exists, hgetErr := r.redisClient.HGet(ctx, StatKey(r.name), fieldExpectedInsertions)
		if hgetErr != nil {
			return storeError("filter parameters read failed", hgetErr)
		}
		if exists && !r.config.AutoUseExisting {
			return errors.Wrapf(ErrAlreadyExists, "filter %q", r.name)
		}
		if exists {
			return r.adopt(ctx, rawInsertions)
		}
		return r.create(ctx)
	})
}

func (r *RedisBloom) adopt(ctx context.Context, rawInsertions string) (err error) {
	r.hooks.Before(Adopt, r.name)
	defer func() {
		r.hooks.After(Adopt, err, r.name)
	}()

	rawRate, exists, hgetErr := r.redisClient.HGet(ctx, StatKey(r.name), fieldFalsePositiveRate)
	if hgetErr != nil {
		return storeError("filter parameters read failed", hgetErr)
	}
	if !exists {
		return errors.Wrapf(ErrParameterWrong, "filter %q has no %s", r.name, fieldFalsePositiveRate)
	}
	insertions, parseErr := strconv.ParseInt(rawInsertions, 10, 64)
	if parseErr != nil {
		return errors.Wrapf(ErrParameterWrong, "filter %q: %s %q is not an integer", r.name, fieldExpectedInsertions, rawInsertions)
	}
	rate, parseErr := strconv.ParseFloat(rawRate, 64)
	if parseErr != nil {
		return errors.Wrapf(ErrParameterWrong, "filter %q: %s %q is not a float", r.name, fieldFalsePositiveRate, rawRate)
	}
	adopted := FilterParams{
		ExpectedInsertions: insertions,
		FalsePositiveRate:  rate,
	}
	if validationErr := adopted.validate(); validationErr != nil {
		return errors.WithMessagef(validationErr, "filter %q", r.name)
	}

	l := newLayout(adopted, r.slotBits)
	existingSlots, existsErr := r.redisClient.Exists(ctx, SlotKeys(r.name, l.slotNumber)...)
	if existsErr != nil {
		return storeError("filter slots check failed", existsErr)
	}
	if uint64(existingSlots) < l.slotNumber {
		return errors.Wrapf(ErrMissingSlots, "filter %q: %d of %d slots found", r.name, existingSlots, l.slotNumber)
	}
	r.filterParams = adopted
	r.layout = l
	return nil
}

func (r *RedisBloom) create(ctx context.Context) (err error) {
	r.hooks.Before(Create, r.name)
	defer func() {
		r.hooks.After(Create, err, r.name)
	}()

	if validationErr := r.filterParams.validate(); validationErr != nil {
		return validationErr
	}
	l := newLayout(r.filterParams, r.slotBits)
	statKey := StatKey(r.name)
	slotKeys := SlotKeys(r.name, l.slotNumber)

	pipeliner := r.redisClient.Pipeliner(ctx, true)
	// stale leftovers of a partially created filter
	pipeliner.Del(append([]string{statKey}, slotKeys...)...)
	pipeliner.HSet(
		statKey,
		fieldExpectedInsertions, strconv.FormatInt(r.filterParams.ExpectedInsertions, 10),
		fieldFalsePositiveRate, strconv.FormatFloat(r.filterParams.FalsePositiveRate, 'g', -1, 64),
	)
	// touching the last bit makes Redis allocate every slot at its full width
	fullSlots, remainder := SlotOf(l.bitsNumber, r.slotBits)
	for slot := uint64(0); slot < fullSlots; slot++ {
		pipeliner.SetBit(slotKeys[slot], r.slotBits-1, 0)
	}
	if remainder > 0 {
		pipeliner.SetBit(slotKeys[fullSlots], remainder, 0)
	}
	if _, execErr := pipeliner.Exec(); execErr != nil {
		return storeError("filter creation failed", execErr)
	}
	r.layout = l
	return nil
}

// Put adds data into the filter retrying according to Config.Retry.
// Empty data is treated as always present and doesn't touch Redis.
func (r *RedisBloom) Put(ctx context.Context, data []byte) error {
	return r.put(ctx, data, r.config.Retry)
}

// TryPut makes a single attempt and returns the store error if it fails.
func (r *RedisBloom) TryPut(ctx context.Context, data []byte) error {
	return r.put(ctx, data, noRetry)
}

func (r *RedisBloom) put(ctx context.Context, data []byte, retry RetryPolicy) (err error) {
	if readyErr := r.lifecycle.ready(); readyErr != nil {
		return readyErr
	}
	if len(data) == 0 {
		return nil
	}
	r.hooks.Before(Put, data)
	defer func() {
		r.hooks.After(Put, err, data)
	}()

	offsets := BitOffsets(data, r.layout.hashRounds, r.layout.bitsNumber)
	if len(offsets) == 0 {
		return nil
	}
	var replies []int64
	execErr := retry.do(ctx, r.onRetry(Put), func() error {
		pipeliner := r.redisClient.Pipeliner(ctx, r.config.WithTransaction)
		for _, offset := range offsets {
			slot, local := SlotOf(offset, r.slotBits)
			pipeliner.SetBit(SlotKey(r.name, slot), local, 1)
		}
		var pipeErr error
		replies, pipeErr = pipeliner.Exec()
		return pipeErr
	})
	if execErr != nil {
		return storeError("bits set failed", execErr)
	}
	for _, previous := range replies {
		if previous == 0 {
			r.countInsertion(ctx)
			break
		}
	}
	return nil
}

// countInsertion is best effort: the counter is approximate and a failure mustn't fail a successful put.
func (r *RedisBloom) countInsertion(ctx context.Context) {
	r.hooks.Before(CountInsertion, r.name)
	_, incrErr := r.redisClient.HIncrBy(ctx, StatKey(r.name), fieldInsertions, 1)
	if incrErr != nil {
		r.logger("bloom filter", r.name, "insertions counter increment failed:", incrErr)
	}
	r.hooks.After(CountInsertion, incrErr, r.name)
}

// Contains reports whether data may be in the filter retrying according to Config.Retry.
// False positives are possible, false negatives aren't. Empty data is always present.
func (r *RedisBloom) Contains(ctx context.Context, data []byte) (bool, error) {
	return r.contains(ctx, data, r.config.Retry)
}

// TryContains makes a single attempt and returns false with the store error if it fails.
func (r *RedisBloom) TryContains(ctx context.Context, data []byte) (bool, error) {
	return r.contains(ctx, data, noRetry)
}

// IsMember is Contains retrying until success or until ctx is done, whatever Config.Retry says.
func (r *RedisBloom) IsMember(ctx context.Context, data []byte) (bool, error) {
	return r.contains(ctx, data, r.config.Retry.unbounded())
}

func (r *RedisBloom) contains(ctx context.Context, data []byte, retry RetryPolicy) (found bool, err error) {
	if readyErr := r.lifecycle.ready(); readyErr != nil {
		return false, readyErr
	}
	if len(data) == 0 {
		return true, nil
	}
	r.hooks.Before(Contains, data)
	defer func() {
		r.hooks.After(Contains, err, data, found)
	}()

	offsets := BitOffsets(data, r.layout.hashRounds, r.layout.bitsNumber)
	var bits []int64
	execErr := retry.do(ctx, r.onRetry(Contains), func() error {
		pipeliner := r.redisClient.Pipeliner(ctx, r.config.WithTransaction)
		for _, offset := range offsets {
			slot, local := SlotOf(offset, r.slotBits)
			pipeliner.GetBit(SlotKey(r.name, slot), local)
		}
		var pipeErr error
		bits, pipeErr = pipeliner.Exec()
		return pipeErr
	})
	if execErr != nil {
		return false, storeError("bits check failed", execErr)
	}
	for _, bit := range bits {
		if bit != 1 {
			return false, nil
		}
	}
	return true, nil
}

// Count returns the approximate number of inserted elements or -1 if nothing was counted yet.
// The counter is increased once per put that changed at least one bit, without retries,
// so it may be lower than the real number of unique insertions.
func (r *RedisBloom) Count(ctx context.Context) (count int64, err error) {
	if readyErr := r.lifecycle.ready(); readyErr != nil {
		return 0, readyErr
	}
	r.hooks.Before(Count, r.name)
	defer func() {
		r.hooks.After(Count, err, r.name, count)
	}()

	raw, exists, hgetErr := r.redisClient.HGet(ctx, StatKey(r.name), fieldInsertions)
	if hgetErr != nil {
		return 0, storeError("insertions counter read failed", hgetErr)
	}
	if !exists {
		return -1, nil
	}
	count, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil {
		return 0, errors.Wrapf(parseErr, "filter %q: insertions counter %q is not an integer", r.name, raw)
	}
	return count, nil
}

// Destroy removes the filter from Redis. The handle becomes unusable right away,
// then the removal is retried until it succeeds or ctx is done.
func (r *RedisBloom) Destroy(ctx context.Context) error {
	return r.lifecycle.destroy(func() (err error) {
		r.hooks.Before(Destroy, r.name)
		defer func() {
			r.hooks.After(Destroy, err, r.name)
		}()

		keys := append([]string{StatKey(r.name)}, SlotKeys(r.name, r.layout.slotNumber)...)
		delErr := r.config.Retry.unbounded().do(ctx, r.onRetry(Destroy), func() error {
			pipeliner := r.redisClient.Pipeliner(ctx, true)
			pipeliner.Del(keys...)
			_, pipeErr := pipeliner.Exec()
			return pipeErr
		})
		if delErr != nil {
			return storeError("filter removal failed", delErr)
		}
		return nil
	})
}

func (r *RedisBloom) onRetry(stage Stage) func(attempt int, err error) {
	return func(attempt int, err error) {
		r.logger("bloom filter", r.name, stage.String(), "attempt", attempt, "failed, retrying:", err)
		r.hooks.After(RetryBatch, err, stage, attempt)
	}
}

// Name is the filter name the Redis keys are derived from.
func (r *RedisBloom) Name() string {
	return r.name
}

// Params returns the parameters in use; after adoption they are the ones stored in Redis.
func (r *RedisBloom) Params() (fp FilterParams) {
	r.lifecycle.read(func() {
		fp = r.filterParams
	})
	return fp
}

// BitsNumber is the bit array length, 0 before Initialize.
func (r *RedisBloom) BitsNumber() (bits uint64) {
	r.lifecycle.read(func() {
		bits = r.layout.bitsNumber
	})
	return bits
}

// HashRounds is the number of bits set per key, 0 before Initialize.
func (r *RedisBloom) HashRounds() (rounds int) {
	r.lifecycle.read(func() {
		rounds = r.layout.hashRounds
	})
	return rounds
}

// SlotNumber is the number of Redis strings holding the bit array, 0 before Initialize.
func (r *RedisBloom) SlotNumber() (slots uint64) {
	r.lifecycle.read(func() {
		slots = r.layout.slotNumber
	})
	return slots
}

// State is the local lifecycle state of this handle, other clients of the same filter have their own.
func (r *RedisBloom) State() State {
	return r.lifecycle.current()
}
