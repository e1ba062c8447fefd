package transport

import (
	"sync"

	"github.com/rubyist/circuitbreaker"
)

type breakerSet struct {
	backoffAt int64
	breakers  *sync.Map
}

func newBreakerSet(backoffAt int) *breakerSet {
	b := int64(backoffAt)
	if b <= 0 {
		b = 10 // default to 10 for those who don't have this set
	}
	return &breakerSet{backoffAt: b, breakers: &sync.Map{}}
}

func (s *breakerSet) get(host string) *circuit.Breaker {
	if cb, ok := s.breakers.Load(host); ok {
		return cb.(*circuit.Breaker)
	}
	cb, _ := s.breakers.LoadOrStore(host, circuit.NewConsecutiveBreaker(s.backoffAt))
	return cb.(*circuit.Breaker)
}
