package conversation

import (
	"fmt"
	"sync"
	"time"
)

// idGenerator produces "msg_<epoch-ms>" identifiers. Two messages created
// within the same millisecond would collide, so the generator bumps the
// reported millisecond past the last one issued; identifiers stay unique
// and strictly increasing within a process.
type idGenerator struct {
	mu     sync.Mutex
	lastMS int64
	now    func() time.Time
}

var defaultIDGenerator = &idGenerator{now: time.Now}

func (g *idGenerator) next() (string, int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.lastMS {
		ms = g.lastMS + 1
	}
	g.lastMS = ms
	return fmt.Sprintf("msg_%d", ms), ms
}

// NewMessageID returns a fresh message identifier and the timestamp it
// embeds.
func NewMessageID() (string, int64) {
	return defaultIDGenerator.next()
}
