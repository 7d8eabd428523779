// Package breaker a small circuit breaker guarding database round trips. see https://github.com/sony/gobreaker
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/ZenLiuCN/bitfields/conf"
)

type State int32

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	zero               time.Time
	ErrTooManyRequests = errors.New("too many requests")
	ErrOpenState       = errors.New("breaker is open")
)

type Configure struct {
	Name          string                                  // the breaker name
	MaxRequests   uint32                                  // requests allowed while half open, default 1
	Interval      time.Duration                           // counter reset interval while closed, default one second
	Timeout       time.Duration                           // open duration before half open, default one minute
	ReadyToTrip   func(counter *Counter) bool             // trip check, default more than five consecutive failures
	OnStateChange func(name string, from State, to State) // optional state monitor
}

// Counts returns a trip check on consecutive failures over n.
func Counts(n uint32) func(counter *Counter) bool {
	return func(counter *Counter) bool {
		return counter.ConsecutiveFailures > n
	}
}

// Breaker zero value is a closed breaker with default configure.
type Breaker struct {
	mutex      sync.Mutex
	state      State
	counter    Counter
	configure  Configure
	generation uint64
	expiry     time.Time
}

func New(c func(configure *Configure)) *Breaker {
	b := new(Breaker)
	b.Configure(c)
	return b
}

// FromConfig reads
//
//	breaker{ name: db, maxRequests: 1, interval: 1s, timeout: 1m, failures: 5 }
//
// state changes are logged.
func FromConfig(c conf.Config) *Breaker {
	return New(func(configure *Configure) {
		configure.Name = c.GetString("name", "breaker")
		configure.MaxRequests = uint32(c.GetInt32("maxRequests", 1))
		configure.Interval = c.GetTimeDuration("interval", time.Second)
		configure.Timeout = c.GetTimeDuration("timeout", time.Minute)
		configure.ReadyToTrip = Counts(uint32(c.GetInt32("failures", 5)))
		configure.OnStateChange = func(name string, from State, to State) {
			conf.Internal().Warnf("breaker %s: %s => %s", name, from, to)
		}
	})
}

// Configure current Breaker
func (s *Breaker) Configure(c func(configure *Configure)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if c != nil {
		c(&s.configure)
	}
	s.defaults()
	if s.state == StateClosed {
		s.newGeneration(time.Now())
	}
}

func (s *Breaker) defaults() {
	if s.configure.MaxRequests == 0 {
		s.configure.MaxRequests = 1
	}
	if s.configure.Interval <= 0 {
		s.configure.Interval = time.Second
	}
	if s.configure.Timeout <= 0 {
		s.configure.Timeout = time.Minute
	}
	if s.configure.ReadyToTrip == nil {
		s.configure.ReadyToTrip = Counts(5)
	}
}

func (s *Breaker) Name() string {
	return s.configure.Name
}

func (s *Breaker) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	state, _ := s.currentState(time.Now())
	return state
}

// Counter snapshot of current generation.
func (s *Breaker) Counter() Counter {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.counter
}

// Guard run act unless the breaker refuses, act failures count toward tripping.
func (s *Breaker) Guard(act func() error) error {
	done, err := s.Prepare()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			done(false)
			panic(r)
		}
	}()
	err = act()
	done(err == nil)
	return err
}

// Prepare admit one request, handle must be called with its outcome.
func (s *Breaker) Prepare() (handle func(success bool), err error) {
	generation, err := s.pre()
	if err != nil {
		return nil, err
	}
	return func(success bool) {
		s.after(generation, success)
	}, nil
}

func (s *Breaker) currentState(now time.Time) (State, uint64) {
	switch s.state {
	case StateClosed:
		if !s.expiry.IsZero() && s.expiry.Before(now) {
			s.newGeneration(now)
		}
	case StateOpen:
		if s.expiry.Before(now) {
			s.setState(StateHalfOpen, now)
		}
	}
	return s.state, s.generation
}

func (s *Breaker) pre() (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.configure.ReadyToTrip == nil {
		s.defaults()
		s.newGeneration(time.Now())
	}
	state, generation := s.currentState(time.Now())
	switch {
	case state == StateOpen:
		return generation, ErrOpenState
	case state == StateHalfOpen && s.counter.Requests >= s.configure.MaxRequests:
		return generation, ErrTooManyRequests
	}
	s.counter.OnRequest()
	return generation, nil
}

func (s *Breaker) after(before uint64, success bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := time.Now()
	state, generation := s.currentState(now)
	if generation != before {
		return
	}
	if success {
		s.onSuccess(state, now)
	} else {
		s.onFailure(state, now)
	}
}

func (s *Breaker) newGeneration(now time.Time) {
	s.generation++
	s.counter.Reset()
	switch s.state {
	case StateClosed:
		s.expiry = now.Add(s.configure.Interval)
	case StateOpen:
		s.expiry = now.Add(s.configure.Timeout)
	default:
		s.expiry = zero
	}
}

func (s *Breaker) setState(state State, now time.Time) {
	if s.state == state {
		return
	}
	prev := s.state
	s.state = state
	s.newGeneration(now)
	if s.configure.OnStateChange != nil {
		s.configure.OnStateChange(s.configure.Name, prev, state)
	}
}

func (s *Breaker) onSuccess(state State, now time.Time) {
	s.counter.OnSuccess()
	if state == StateHalfOpen && s.counter.ConsecutiveSuccesses >= s.configure.MaxRequests {
		s.setState(StateClosed, now)
	}
}

func (s *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		s.counter.OnFailure()
		if s.configure.ReadyToTrip(&s.counter) {
			s.setState(StateOpen, now)
		}
	case StateHalfOpen:
		s.setState(StateOpen, now)
	}
}

type Counter struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (s *Counter) OnRequest() {
	s.Requests++
}
func (s *Counter) OnSuccess() {
	s.TotalSuccesses++
	s.ConsecutiveSuccesses++
	s.ConsecutiveFailures = 0
}
func (s *Counter) OnFailure() {
	s.TotalFailures++
	s.ConsecutiveSuccesses = 0
	s.ConsecutiveFailures++
}
func (s *Counter) Reset() {
	*s = Counter{}
}
