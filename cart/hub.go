package cart

import (
	"sync"

	"njmart/engine"
	"njmart/persist"
)

// Hub hands out one engine per customer session. Engines are created lazily
// and live for the life of the process; their state survives restarts through
// the persistence backend.
type Hub struct {
	mu      sync.Mutex
	engines map[string]*engine.Engine

	store   persist.Store
	backend engine.Backend
	policy  engine.DeliveryPolicy
}

func NewHub(store persist.Store, backend engine.Backend, policy engine.DeliveryPolicy) *Hub {
	return &Hub{
		engines: make(map[string]*engine.Engine),
		store:   store,
		backend: backend,
		policy:  policy,
	}
}

// Engine returns the engine owning userID's cart, creating it on first use.
func (h *Hub) Engine(userID string) *engine.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.engines[userID]; ok {
		return e
	}
	e := engine.New(h.store, h.backend, h.policy, engine.KeysFor(userID))
	h.engines[userID] = e
	return e
}
