package operations

import (
	"context"
	"sync"
	"time"
)

// Stage is one step of the feature pipeline. Best-effort stages may
// fail without failing the run; their error is recorded and the
// pipeline continues.
type Stage interface {
	ID() string
	Name() string
	Timeout() time.Duration
	BestEffort() bool
	Execute(ctx context.Context, state *State) error
}

// State is the shared mutable state of one pipeline run. Stages publish
// their results here for later stages and for the run summary.
type State struct {
	mu      sync.RWMutex
	results map[string]interface{}
}

// NewState creates an empty run state.
func NewState() *State {
	return &State{results: make(map[string]interface{})}
}

// Set stores a stage result under a key.
func (s *State) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = value
}

// Get returns a stage result.
func (s *State) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.results[key]
	return v, ok
}

// Results returns a copy of all published results.
func (s *State) Results() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// BaseStage carries the identity shared by all concrete stages.
type BaseStage struct {
	id         string
	name       string
	timeout    time.Duration
	bestEffort bool
}

// NewBaseStage creates the common stage identity.
func NewBaseStage(id, name string, timeout time.Duration, bestEffort bool) BaseStage {
	return BaseStage{id: id, name: name, timeout: timeout, bestEffort: bestEffort}
}

func (b BaseStage) ID() string             { return b.id }
func (b BaseStage) Name() string           { return b.name }
func (b BaseStage) Timeout() time.Duration { return b.timeout }
func (b BaseStage) BestEffort() bool       { return b.bestEffort }
