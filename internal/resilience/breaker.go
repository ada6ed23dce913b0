package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a provider circuit.
type BreakerState int

const (
	// Closed lets calls through.
	Closed BreakerState = iota
	// Open rejects calls until the cooldown elapses.
	Open
	// HalfOpen lets a single probe through.
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned when a call is short-circuited.
var ErrBreakerOpen = eris.New("resilience: circuit open")

// BreakerSettings configures a Breaker.
type BreakerSettings struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// OnStateChange fires under the breaker lock; keep it cheap.
	OnStateChange func(name string, from, to BreakerState)
}

// Breaker is a consecutive-failure circuit breaker for one provider.
type Breaker struct {
	name     string
	settings BreakerSettings

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, s BreakerSettings) *Breaker {
	if s.Threshold <= 0 {
		s.Threshold = 3
	}
	if s.Cooldown <= 0 {
		s.Cooldown = time.Minute
	}
	return &Breaker{name: name, settings: s, now: time.Now}
}

// Call runs fn unless the circuit is open.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	// A caller giving up is not the provider's fault.
	if err != nil && ctx.Err() != nil {
		b.release()
		return zero, err
	}
	b.record(err)
	return val, err
}

// State reports the current state, accounting for an elapsed cooldown.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		return HalfOpen
	}
	return b.state
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.settings.Cooldown {
			return eris.Wrapf(ErrBreakerOpen, "provider %s", b.name)
		}
		b.setState(HalfOpen)
		b.probing = true
	case HalfOpen:
		if b.probing {
			return eris.Wrapf(ErrBreakerOpen, "provider %s probing", b.name)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if err == nil {
		b.failures = 0
		if b.state != Closed {
			b.setState(Closed)
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.settings.Threshold {
		b.openedAt = b.now()
		if b.state != Open {
			b.setState(Open)
		}
	}
}

func (b *Breaker) setState(to BreakerState) {
	from := b.state
	b.state = to
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

// Breakers lazily creates one Breaker per provider name.
type Breakers struct {
	settings BreakerSettings

	mu  sync.Mutex
	set map[string]*Breaker
}

// NewBreakers creates an empty registry sharing settings.
func NewBreakers(s BreakerSettings) *Breakers {
	return &Breakers{settings: s, set: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (r *Breakers) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.set[name]
	if !ok {
		b = NewBreaker(name, r.settings)
		r.set[name] = b
	}
	return b
}

// States snapshots every known breaker.
func (r *Breakers) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.set))
	for name, b := range r.set {
		out[name] = b.State().String()
	}
	return out
}
