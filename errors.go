package bloom

import (
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyExists is returned by Initialize when the filter exists and Config.AutoUseExisting is off
	ErrAlreadyExists = errors.New("bloom filter already exists")

	// ErrParameterWrong means the filter parameters are invalid or the stored ones are missing
	ErrParameterWrong = errors.New("bloom filter parameters are wrong")

	// ErrMissingSlots means some slots of an existing filter were removed from the store
	ErrMissingSlots = errors.New("bloom filter slots are missing")

	// ErrMustInitializeFirst is returned by every operation called before a successful Initialize
	ErrMustInitializeFirst = errors.New("bloom filter must be initialized first")

	// ErrAlreadyDestroyed is returned by every operation called after Destroy
	ErrAlreadyDestroyed = errors.New("bloom filter is already destroyed")
)

// StoreError wraps a failure of the underlying store: connectivity, timeouts, server errors.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Cause() error {
	return e.Err
}

// IsStoreError reports whether err was caused by the store rather than by the filter lifecycle.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

func storeError(op string, err error) error {
	return errors.WithStack(&StoreError{Op: op, Err: err})
}
