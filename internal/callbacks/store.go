// Package callbacks keeps the latest callback notification per track or job
// id for the life of the process.
package callbacks

import (
	"encoding/json"
	"fmt"
	"sync"

	"suno-relay/internal/metrics"
	"suno-relay/internal/shared"
)

// Payload is a callback document exactly as the upstream sent it
type Payload = map[string]any

// idFields are checked in order, the first truthy value wins
var idFields = []string{"id", "track_id", "job_id"}

type Store struct {
	mu       sync.RWMutex
	payloads map[string]Payload
	order    []string
}

func NewStore() *Store {
	return &Store{payloads: map[string]Payload{}}
}

// Record stores payload under its resolved id, replacing any earlier payload
// for the same id, and returns that id.
func (s *Store) Record(payload Payload) string {
	id := ResolveID(payload)

	s.mu.Lock()
	if _, exists := s.payloads[id]; !exists {
		s.order = append(s.order, id)
	}
	s.payloads[id] = payload
	// gauge must be written under the lock
	metrics.CallbackStoreEntries.Set(float64(len(s.payloads)))
	s.mu.Unlock()

	metrics.CallbacksReceived.Inc()
	return id
}

func (s *Store) Get(id string) (Payload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[id]
	return p, ok
}

// Keys lists ids in the order they were first recorded
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// ResolveID extracts the identifier from id, track_id or job_id, falling
// back to "unknown". Callbacks without any id all share that one slot.
func ResolveID(payload Payload) string {
	for _, field := range idFields {
		v, ok := payload[field]
		if !ok || !truthy(v) {
			continue
		}
		return stringify(v)
	}
	return shared.UnknownCallbackID
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
