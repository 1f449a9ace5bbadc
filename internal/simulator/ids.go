package simulator

import (
	"sync"
	"time"
)

// idGenerator hands out millisecond timestamps that never repeat: when two
// ids are requested within the same millisecond the second one is bumped.
type idGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (g *idGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
