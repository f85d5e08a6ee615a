package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Memory is an in-memory Database with realtime fan-out. A single mutex
// serializes every write and transaction, which makes RunTransaction
// atomic by construction. Subscribers receive change batches after the
// originating write has committed.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memCollection // key: familyID + "/" + name
}

// NewMemory creates an empty in-memory remote database
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) Collection(familyID, name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectionLocked(familyID, name)
}

func (m *Memory) collectionLocked(familyID, name string) *memCollection {
	key := familyID + "/" + name
	col, ok := m.collections[key]
	if !ok {
		col = &memCollection{db: m, docs: make(map[string]json.RawMessage)}
		m.collections[key] = col
	}
	return col
}

// RunTransaction executes fn while holding the database lock; all tx writes
// are staged and applied (with change notification) only if fn succeeds
func (m *Memory) RunTransaction(ctx context.Context, familyID string, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	tx := &memTx{db: m, familyID: familyID, staged: make(map[string]map[string]json.RawMessage)}
	err := fn(tx)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for name, docs := range tx.staged {
		col := m.collectionLocked(familyID, name)
		for id, doc := range docs {
			col.docs[id] = doc
			col.broadcastLocked([]Change{{Kind: ChangeUpserted, ID: id, Doc: doc}})
		}
	}
	m.mu.Unlock()
	return nil
}

// Memberships scans every family's members collection for the user's records
func (m *Memory) Memberships(ctx context.Context, userID string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []json.RawMessage
	for key, col := range m.collections {
		if !isMembersKey(key) {
			continue
		}
		for _, doc := range col.docs {
			var probe struct {
				UserID  string `json:"userId"`
				Deleted bool   `json:"deleted"`
			}
			if err := json.Unmarshal(doc, &probe); err != nil {
				continue
			}
			if probe.UserID == userID && !probe.Deleted {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func isMembersKey(key string) bool {
	const suffix = "/" + ColMembers
	return len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix
}

type memCollection struct {
	db          *Memory
	docs        map[string]json.RawMessage
	subscribers []chan []Change
}

func (c *memCollection) Set(ctx context.Context, id string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := make(json.RawMessage, len(doc))
	copy(cp, doc)

	c.db.mu.Lock()
	c.docs[id] = cp
	c.broadcastLocked([]Change{{Kind: ChangeUpserted, ID: id, Doc: cp}})
	c.db.mu.Unlock()
	return nil
}

func (c *memCollection) Get(ctx context.Context, id string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	doc, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

func (c *memCollection) List(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	out := make(map[string]json.RawMessage, len(c.docs))
	for id, doc := range c.docs {
		out[id] = doc
	}
	return out, nil
}

func (c *memCollection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.db.mu.Lock()
	_, existed := c.docs[id]
	delete(c.docs, id)
	if existed {
		c.broadcastLocked([]Change{{Kind: ChangeRemoved, ID: id}})
	}
	c.db.mu.Unlock()
	return nil
}

func (c *memCollection) Subscribe() (<-chan []Change, func()) {
	ch := make(chan []Change, 256)

	c.db.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.db.mu.Unlock()

	cancel := func() {
		c.db.mu.Lock()
		for i, s := range c.subscribers {
			if s == ch {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
		c.db.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLocked fans a batch out to every subscriber. Caller holds the
// database lock; sends never block, so holding it here is safe and keeps
// cancellation (which closes channels under the same lock) race-free.
func (c *memCollection) broadcastLocked(batch []Change) {
	for _, ch := range c.subscribers {
		select {
		case ch <- batch:
		default:
			// Subscriber fell too far behind. Per the Subscribe contract
			// the batch is dropped; recovery is a bootstrap refresh.
			log.Printf("Remote: dropped change batch for a slow subscriber")
		}
	}
}

type memTx struct {
	db       *Memory
	familyID string
	staged   map[string]map[string]json.RawMessage
}

func (tx *memTx) Get(collection, id string) (json.RawMessage, error) {
	if docs, ok := tx.staged[collection]; ok {
		if doc, ok := docs[id]; ok {
			return doc, nil
		}
	}

	col := tx.db.collectionLocked(tx.familyID, collection)
	doc, ok := col.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

func (tx *memTx) Set(collection, id string, doc json.RawMessage) error {
	cp := make(json.RawMessage, len(doc))
	copy(cp, doc)

	if tx.staged[collection] == nil {
		tx.staged[collection] = make(map[string]json.RawMessage)
	}
	tx.staged[collection][id] = cp
	return nil
}
