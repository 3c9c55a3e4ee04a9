package bloom

import (
	"context"
	"strconv"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/suite"
	"github.com/vkuptcov/sharedbloom/redisclients"
	"syreclabs.com/go/faker"
)

// RedisFilterSuite runs against a real Redis on localhost:6379 and is skipped without it.
type RedisFilterSuite struct {
	client *redis.Client
	filter *RedisBloom
	suite.Suite
}

func (st *RedisFilterSuite) SetupSuite() {
	st.client = redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	if pingErr := st.client.Ping(context.Background()).Err(); pingErr != nil {
		st.T().Skip("redis isn't available: ", pingErr)
	}
}

func (st *RedisFilterSuite) TearDownSuite() {
	if st.client != nil {
		_ = st.client.Close()
	}
}

func (st *RedisFilterSuite) SetupTest() {
	st.filter = st.newFilter("test-bloom-"+faker.RandomString(5), DefaultConfig())
	st.Require().NoError(st.filter.Initialize(context.Background()), "no error expected on filter initialization")
}

func (st *RedisFilterSuite) TearDownTest() {
	if st.filter.State() == Initialized {
		st.Require().NoError(st.filter.Destroy(context.Background()))
	}
}

func (st *RedisFilterSuite) newFilter(name string, config Config) *RedisBloom {
	return NewRedisBloom(
		redisclients.NewGoRedisClient(st.client),
		name,
		FilterParams{
			ExpectedInsertions: 10000,
			FalsePositiveRate:  0.001,
		},
		config,
	)
}

func (st *RedisFilterSuite) TestRedisFilter() {
	ctx := context.Background()
	st.Require().NoError(st.filter.PutString(ctx, "hello test"), "adding data failed")

	isSet, err := st.filter.ContainsString(ctx, "hello test")
	st.Require().NoError(err, "check data failed")
	st.Require().True(isSet)

	isSet, err = st.filter.ContainsString(ctx, "hello test gone")
	st.Require().NoError(err, "check data failed")
	st.Require().False(isSet)

	count, err := st.filter.Count(ctx)
	st.Require().NoError(err)
	st.Require().Equal(int64(1), count)

	slotLen, err := st.client.StrLen(ctx, SlotKey(st.filter.Name(), 0)).Result()
	st.Require().NoError(err)
	st.Require().Equal(int64(143776/8), slotLen, "slot must be allocated on initialization")
}

func (st *RedisFilterSuite) TestSeveralClients() {
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		st.Require().NoError(st.filter.PutString(ctx, strconv.Itoa(i)))
	}

	restored := st.newFilter(st.filter.Name(), DefaultConfig())
	st.Require().NoError(restored.Initialize(ctx), "No error expected on filter restore")
	st.Require().Equal(st.filter.BitsNumber(), restored.BitsNumber())
	st.Require().Equal(st.filter.HashRounds(), restored.HashRounds())
	for i := 0; i < 500; i++ {
		found, err := restored.ContainsString(ctx, strconv.Itoa(i))
		st.Require().NoError(err)
		st.Require().Truef(found, "value %d expected in the restored filter", i)
	}

	config := DefaultConfig()
	config.AutoUseExisting = false
	st.Require().ErrorIs(st.newFilter(st.filter.Name(), config).Initialize(ctx), ErrAlreadyExists)
}

func (st *RedisFilterSuite) TestWithoutTransactions() {
	ctx := context.Background()
	config := DefaultConfig()
	config.WithTransaction = false
	f := NewRedisBloom(
		redisclients.NewGoRedisClientWithoutTransactions(st.client),
		st.filter.Name(),
		FilterParams{},
		config,
	)
	st.Require().NoError(f.Initialize(ctx))
	st.Require().NoError(f.PutString(ctx, "no multi"))
	found, err := st.filter.ContainsString(ctx, "no multi")
	st.Require().NoError(err)
	st.Require().True(found)
}

func (st *RedisFilterSuite) TestDestroy() {
	ctx := context.Background()
	name := st.filter.Name()
	st.Require().NoError(st.filter.PutString(ctx, "abc"))
	st.Require().NoError(st.filter.Destroy(ctx))

	existing, err := st.client.Exists(ctx, StatKey(name), SlotKey(name, 0)).Result()
	st.Require().NoError(err)
	st.Require().Equal(int64(0), existing)
}

func (st *RedisFilterSuite) TestFalsePositives() {
	ctx := context.Background()
	const falsePositives = 0.001
	for i := 0; i < 10000; i++ {
		st.Require().NoError(st.filter.PutString(ctx, strconv.Itoa(i)))
	}

	actualFalsePositives := 0
	const nonExistsChecks = 10000
	for i := 0; i < nonExistsChecks; i++ {
		found, err := st.filter.ContainsString(ctx, faker.RandomString(7))
		st.Require().NoError(err, "data check in Redis failed")
		if found {
			actualFalsePositives++
		}
	}
	actualFalsePositivesPercentage := float64(actualFalsePositives) / float64(nonExistsChecks)
	st.Require().InDelta(falsePositives, actualFalsePositivesPercentage, falsePositives*10, "unexpected false positives")
	st.T().Log(
		"False positives count ",
		actualFalsePositives,
		" out of ",
		nonExistsChecks,
		" checks. Rate: ",
		actualFalsePositivesPercentage,
		". Expected: ",
		falsePositives,
	)
}

func TestRedisFilterSuite(t *testing.T) {
	suite.Run(t, &RedisFilterSuite{})
}
