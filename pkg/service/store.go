package service

import (
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/taurusgroup/uprove-tokens/internal/params"
)

var errStoreFull = errors.New("service: too many pending sessions")

type entry[T any] struct {
	value   T
	expires time.Time
}

// store holds the server's half of pending exchanges.
//
// Each value is handed out at most once, so that concurrent requests for the same session
// cannot both use its ephemeral state.
type store[T any] struct {
	mtx     sync.Mutex
	ttl     time.Duration
	limit   int
	source  io.Reader
	now     func() time.Time
	entries map[string]entry[T]
}

func newStore[T any](ttl time.Duration, limit int, source io.Reader) *store[T] {
	return &store[T]{
		ttl:     ttl,
		limit:   limit,
		source:  source,
		now:     time.Now,
		entries: make(map[string]entry[T]),
	}
}

// put stores value under a fresh random identifier.
func (s *store[T]) put(value T) (string, error) {
	var raw [params.SessionIDBytes]byte
	if _, err := io.ReadFull(s.source, raw[:]); err != nil {
		return "", err
	}
	id := hex.EncodeToString(raw[:])

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sweep()
	if len(s.entries) >= s.limit {
		return "", errStoreFull
	}
	s.entries[id] = entry[T]{value: value, expires: s.now().Add(s.ttl)}
	return id, nil
}

// take removes the value stored under id, and returns it if it has not expired.
func (s *store[T]) take(id string) (T, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	e, ok := s.entries[id]
	if !ok {
		var empty T
		return empty, false
	}
	delete(s.entries, id)
	if s.now().After(e.expires) {
		var empty T
		return empty, false
	}
	return e.value, true
}

func (s *store[T]) len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.entries)
}

// sweep drops expired entries. The caller must hold the lock.
func (s *store[T]) sweep() {
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
}
