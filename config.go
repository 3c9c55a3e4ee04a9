package bloom

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

type FilterParams struct {
	ExpectedInsertions int64
	// FalsePositiveRate is in [0, 1], zero is replaced by MinFalsePositiveRate
	FalsePositiveRate float64
}

func (fp FilterParams) validate() error {
	if fp.ExpectedInsertions <= 0 {
		return errors.Wrapf(ErrParameterWrong, "expected insertions must be positive, got %d", fp.ExpectedInsertions)
	}
	if math.IsNaN(fp.FalsePositiveRate) || fp.FalsePositiveRate < 0 || fp.FalsePositiveRate > 1 {
		return errors.Wrapf(ErrParameterWrong, "false positive rate must be in [0, 1], got %v", fp.FalsePositiveRate)
	}
	return nil
}

// RetryPolicy controls how a failed batch is repeated.
type RetryPolicy struct {
	// MaxAttempts limits the number of attempts, 0 means retry until success or the context is done
	MaxAttempts int
	// Backoff is the pause between attempts
	Backoff time.Duration
}

type Config struct {
	// AutoUseExisting allows adopting a filter with the same name created by another client
	AutoUseExisting bool
	// WithTransaction executes put and contains batches in MULTI/EXEC.
	// Initialization and destruction always use transactions.
	WithTransaction bool
	Retry           RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		AutoUseExisting: true,
		WithTransaction: true,
		Retry: RetryPolicy{
			Backoff: 10 * time.Millisecond,
		},
	}
}
