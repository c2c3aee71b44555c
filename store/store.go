package store

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	messagesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogfront_store_messages_applied_total",
		Help: "The total number of messages applied to the post collection",
	}, []string{"kind"})

	collectionSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blogfront_store_posts",
		Help: "The current number of posts held in the store",
	})

	changesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogfront_store_changes_dropped_total",
		Help: "Change notifications skipped because a subscriber channel was full",
	})
)

// ErrStopped is returned by Dispatch once the store loop has exited
var ErrStopped = errors.New("store stopped")

// Change is sent to subscribers after every applied message. Changed is
// false when the message left the collection's contents as they were.
type Change struct {
	Version uint64 `json:"version"`
	Kind    Kind   `json:"kind"`
	Size    int    `json:"size"`
	Changed bool   `json:"changed"`
}

type envelope struct {
	msg  Message
	done chan struct{}
}

// Store owns the post collection. Messages are applied one at a time by the
// loop started with Run; readers get immutable snapshots.
type Store struct {
	mu      sync.RWMutex
	state   Collection
	version uint64

	// version of the last message that changed the collection
	changedAt uint64

	queue   chan envelope
	stopped chan struct{}
	once    sync.Once

	clientsMu sync.RWMutex
	clients   map[string]chan Change
}

func New() *Store {
	return &Store{
		state:   Collection{},
		queue:   make(chan envelope, 64),
		stopped: make(chan struct{}),
		clients: make(map[string]chan Change),
	}
}

// Run applies dispatched messages until ctx is cancelled
func (s *Store) Run(ctx context.Context) error {
	defer s.once.Do(func() { close(s.stopped) })

	log.Info("Starting store loop")
	for {
		select {
		case <-ctx.Done():
			log.Info("Store loop stopped")
			return nil
		case env := <-s.queue:
			s.apply(env.msg)
			close(env.done)
		}
	}
}

func (s *Store) apply(msg Message) {
	s.mu.Lock()
	next := Reduce(s.state, msg)
	changed := !maps.Equal(s.state, next)
	s.state = next
	s.version++
	if changed {
		s.changedAt = s.version
	}
	change := Change{Version: s.version, Kind: msg.Kind(), Size: len(next), Changed: changed}
	s.mu.Unlock()

	messagesApplied.WithLabelValues(string(msg.Kind())).Inc()
	collectionSize.Set(float64(change.Size))

	log.WithFields(log.Fields{
		"kind":    change.Kind,
		"version": change.Version,
		"size":    change.Size,
		"changed": change.Changed,
	}).Debug("Applied message")

	s.broadcast(change)
}

// Dispatch hands msg to the store loop and returns once it has been applied
func (s *Store) Dispatch(ctx context.Context, msg Message) error {
	env := envelope{msg: msg, done: make(chan struct{})}

	select {
	case s.queue <- env:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-env.done:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current collection and its version
func (s *Store) State() (Collection, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.version
}

// ChangedAt returns the version of the last message that changed the
// collection. Messages that left it equal do not move it.
func (s *Store) ChangedAt() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changedAt
}

// Subscribe registers ch to receive a Change after every applied message.
// Sends never block: a full channel misses that change.
func (s *Store) Subscribe(key string, ch chan Change) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[key] = ch
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(s.clients),
	}).Info("Added store subscriber")
}

// Unsubscribe removes and closes the channel registered under key
func (s *Store) Unsubscribe(key string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if ch, ok := s.clients[key]; ok {
		close(ch)
		delete(s.clients, key)
	}
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(s.clients),
	}).Info("Removed store subscriber")
}

// Subscribers lists the keys of the registered subscribers
func (s *Store) Subscribers() []string {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return lo.Keys(s.clients)
}

func (s *Store) broadcast(change Change) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for key, ch := range s.clients {
		select {
		case ch <- change:
		default:
			changesDropped.Inc()
			log.Warnf("Subscriber channel full, skipping change for: %v", key)
		}
	}
}
