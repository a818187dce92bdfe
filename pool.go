package consensus

import (
	"sync"
)

// MatcherPool is a simple pool of Matchers so their scratch state can be
// reused when matching many images concurrently
type MatcherPool struct {
	// pool of matchers
	matchers chan *Matcher
	// size of pool
	size  int
	close sync.Once
}

// NewMatcherPool creates a pool of size Matchers configured from params
func NewMatcherPool(size int, params Params) *MatcherPool {

	if size < 1 {
		size = 1
	}

	p := &MatcherPool{
		matchers: make(chan *Matcher, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		p.Return(NewMatcher(params))
	}

	return p
}

// Size returns the number of Matchers the pool was created with
func (p *MatcherPool) Size() int {
	return p.size
}

// Get a matcher from the pool, blocking until one is available
func (p *MatcherPool) Get() *Matcher {
	return <-p.matchers
}

// Return a matcher to the pool
func (p *MatcherPool) Return(m *Matcher) {
	select {
	case p.matchers <- m:
	default:
		// pool is full
	}
}

// Close the pool and release the scratch state of the matchers it holds
func (p *MatcherPool) Close() {
	p.close.Do(func() {
		close(p.matchers)

		for m := range p.matchers {
			m.release()
		}
	})
}
