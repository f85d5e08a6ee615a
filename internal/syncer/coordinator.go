package syncer

import (
	"errors"
	"log"
	"sync"

	"hearth/internal/database"
	"hearth/internal/models"
	"hearth/internal/remote"
)

// ErrCoordinatorClosed is returned when work is submitted after Close
var ErrCoordinatorClosed = errors.New("coordinator is closed")

type job struct {
	fn     func() error
	result chan error
}

// Coordinator serializes every local store mutation onto one writer
// goroutine. Outbox flushes, reconciliation batches and membership changes
// all funnel through Do, so no two of them ever interleave their
// transactions. It also owns the active family pin and the realtime
// listeners for the pinned family.
type Coordinator struct {
	db  *database.DB
	rdb remote.Database
	rec *Reconciler

	jobs chan job
	stop chan struct{}
	done chan struct{}

	mu           sync.Mutex
	closed       bool
	activeFamily string
	cancelWatch  []func()
	listeners    sync.WaitGroup
}

// NewCoordinator creates a coordinator and starts its writer goroutine
func NewCoordinator(db *database.DB, rdb remote.Database) *Coordinator {
	c := &Coordinator{
		db:   db,
		rdb:  rdb,
		rec:  NewReconciler(db),
		jobs: make(chan job),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case j := <-c.jobs:
			j.result <- j.fn()
		case <-c.stop:
			return
		}
	}
}

// Do runs fn on the writer goroutine and returns its error. Never call Do
// from inside a function already running on the writer.
func (c *Coordinator) Do(fn func() error) error {
	j := job{fn: fn, result: make(chan error, 1)}
	select {
	case c.jobs <- j:
		return <-j.result
	case <-c.stop:
		return ErrCoordinatorClosed
	}
}

// Go submits fn to the writer without waiting for it. The error is never
// silently dropped: failures are logged under name.
func (c *Coordinator) Go(name string, fn func() error) {
	go func() {
		if err := c.Do(fn); err != nil {
			log.Printf("Background task %s failed: %v", name, err)
		}
	}()
}

// SetActiveFamily pins the family every mutation is scoped to
func (c *Coordinator) SetActiveFamily(familyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeFamily = familyID
}

// ActiveFamily returns the pinned family id, empty when none is pinned
func (c *Coordinator) ActiveFamily() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeFamily
}

// Watch subscribes to the realtime feed of every entity collection for
// familyID. Each batch is applied through Do, so reconciliation never
// races a local flush. Any previous watch is torn down first.
func (c *Coordinator) Watch(familyID string) {
	c.Unwatch()

	stores := remote.For(c.rdb, familyID)

	type sub struct {
		entity models.EntityType
		ch     <-chan []remote.Change
		cancel func()
	}
	var subs []sub

	add := func(entity models.EntityType, ch <-chan []remote.Change, cancel func()) {
		subs = append(subs, sub{entity: entity, ch: ch, cancel: cancel})
	}

	ch, cancel := stores.Family.Subscribe()
	add(models.EntityFamily, ch, cancel)
	ch, cancel = stores.Children.Subscribe()
	add(models.EntityChild, ch, cancel)
	ch, cancel = stores.Routines.Subscribe()
	add(models.EntityRoutine, ch, cancel)
	ch, cancel = stores.RoutineChecks.Subscribe()
	add(models.EntityRoutineCheck, ch, cancel)
	ch, cancel = stores.Todos.Subscribe()
	add(models.EntityTodo, ch, cancel)
	ch, cancel = stores.Events.Subscribe()
	add(models.EntityEvent, ch, cancel)
	ch, cancel = stores.Documents.Subscribe()
	add(models.EntityDocument, ch, cancel)
	ch, cancel = stores.Categories.Subscribe()
	add(models.EntityDocumentCategory, ch, cancel)
	ch, cancel = stores.Members.Subscribe()
	add(models.EntityMember, ch, cancel)

	c.mu.Lock()
	for _, s := range subs {
		c.cancelWatch = append(c.cancelWatch, s.cancel)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s := s
		c.listeners.Add(1)
		go func() {
			defer c.listeners.Done()
			for batch := range s.ch {
				b := batch
				if err := c.Do(func() error {
					return c.rec.Apply(s.entity, b)
				}); err != nil {
					log.Printf("Failed to apply %s change batch: %v", s.entity, err)
				}
			}
		}()
	}
}

// Unwatch cancels the realtime listeners, if any are running
func (c *Coordinator) Unwatch() {
	c.mu.Lock()
	cancels := c.cancelWatch
	c.cancelWatch = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.listeners.Wait()
}

// Close tears down the listeners and stops the writer. Pending Do calls
// complete; later ones return ErrCoordinatorClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.Unwatch()
	close(c.stop)
	<-c.done
}
