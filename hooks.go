package bloom

type Stage int

const (
	Default Stage = iota
	Initialize
	Adopt
	Create
	Put
	Contains
	Count
	CountInsertion
	RetryBatch
	Destroy
)

func (s Stage) String() string {
	return [...]string{
		"Default",
		"Initialize",
		"Adopt",
		"Create",
		"Put",
		"Contains",
		"Count",
		"CountInsertion",
		"RetryBatch",
		"Destroy",
	}[s]
}

// Hook observes one stage of the filter operations.
// Args are stage specific: the filter name or the data for Put and Contains;
// Contains and Count also pass the result to After.
type Hook interface {
	Stage() Stage
	Before(args ...interface{})
	After(optionalErr error, args ...interface{})
}

// StageHook builds a Hook from optional callbacks.
type StageHook struct {
	On        Stage
	BeforeFn  func(args ...interface{})
	SuccessFn func(args ...interface{})
	FailFn    func(err error, args ...interface{})
}

func (h *StageHook) Stage() Stage {
	return h.On
}

func (h *StageHook) Before(args ...interface{}) {
	if h.BeforeFn != nil {
		h.BeforeFn(args...)
	}
}

func (h *StageHook) After(optionalErr error, args ...interface{}) {
	switch {
	case optionalErr != nil && h.FailFn != nil:
		h.FailFn(optionalErr, args...)
	case optionalErr == nil && h.SuccessFn != nil:
		h.SuccessFn(args...)
	}
}

// Hooks dispatches stage events to the registered hooks in registration order.
// It's immutable after NewHooks, so one instance can be shared by several filters.
// A nil *Hooks does nothing.
type Hooks struct {
	byStage map[Stage][]Hook
}

func NewHooks(hooks ...Hook) *Hooks {
	hs := &Hooks{byStage: make(map[Stage][]Hook, len(hooks))}
	for _, h := range hooks {
		hs.byStage[h.Stage()] = append(hs.byStage[h.Stage()], h)
	}
	return hs
}

func (hs *Hooks) Before(stage Stage, args ...interface{}) {
	if hs == nil {
		return
	}
	for _, h := range hs.byStage[stage] {
		h.Before(args...)
	}
}

func (hs *Hooks) After(stage Stage, optionalErr error, args ...interface{}) {
	if hs == nil {
		return
	}
	for _, h := range hs.byStage[stage] {
		h.After(optionalErr, args...)
	}
}

var _ Hook = &StageHook{}
