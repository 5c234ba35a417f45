// Package proxy rotates browser traffic across a list of upstream proxies,
// skipping ones that recently failed a navigation.
package proxy

import (
	"sync"
	"time"
)

// cooldown is how long a failed proxy sits out before it is retried.
const cooldown = 5 * time.Minute

// Pool hands out proxies round-robin with failure tracking.
type Pool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
}

// NewPool creates a Pool over the given proxy URLs.
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}
}

// Size returns the number of proxies in the pool.
func (p *Pool) Size() int {
	return len(p.proxies)
}

// GetNext returns the next healthy proxy from the pool. When every proxy
// is cooling down it returns the current one anyway rather than stalling.
func (p *Pool) GetNext() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < cooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed puts a proxy on cooldown so it is skipped for a while.
func (p *Pool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy.
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
