package server

import (
	"sync"

	"github.com/vango-dev/waypoint/pkg/history"
)

// connections tracks live browser stores by connection ID.
type connections struct {
	mu    sync.Mutex
	socks map[string]*history.Socket
}

func newConnections() *connections {
	return &connections{socks: make(map[string]*history.Socket)}
}

func (c *connections) add(id string, s *history.Socket) {
	c.mu.Lock()
	c.socks[id] = s
	c.mu.Unlock()
}

func (c *connections) remove(id string) {
	c.mu.Lock()
	delete(c.socks, id)
	c.mu.Unlock()
}

func (c *connections) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.socks)
}

// closeAll closes every socket. Their read loops then return and the
// handlers remove them.
func (c *connections) closeAll() {
	c.mu.Lock()
	socks := make([]*history.Socket, 0, len(c.socks))
	for _, s := range c.socks {
		socks = append(socks, s)
	}
	c.mu.Unlock()

	for _, s := range socks {
		_ = s.Close()
	}
}
