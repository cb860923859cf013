package server

import (
	"sync"
	"time"

	"chat-widget/internal/chat"
)

// registry keeps one chat client per browser. When full, the client idle
// the longest is dropped along with its transcript.
type registry struct {
	mu         sync.Mutex
	clients    map[string]*entry
	maxClients int
	newClient  func() *chat.Client
	now        func() time.Time
}

type entry struct {
	client   *chat.Client
	lastSeen time.Time
}

func newRegistry(maxClients int, newClient func() *chat.Client) *registry {
	return &registry{
		clients:    make(map[string]*entry),
		maxClients: maxClients,
		newClient:  newClient,
		now:        time.Now,
	}
}

// get returns the client for id, creating it when unknown.
func (g *registry) get(id string) (*chat.Client, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.clients[id]; ok {
		e.lastSeen = g.now()
		return e.client, false
	}
	g.evictLocked()
	c := g.newClient()
	g.clients[id] = &entry{client: c, lastSeen: g.now()}
	return c, true
}

func (g *registry) evictLocked() {
	if g.maxClients <= 0 || len(g.clients) < g.maxClients {
		return
	}
	var oldestID string
	var oldest time.Time
	for id, e := range g.clients {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	delete(g.clients, oldestID)
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}
