package buildgraph

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// recordingStep appends its id to a shared, mutex-guarded log when
// Make runs, so tests can assert ordering without timing hacks.
type recordingStep struct {
	id   string
	deps []Step
	log  *orderLog
	fail error
}

type orderLog struct {
	mu    sync.Mutex
	order []string
}

func (l *orderLog) record(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, id)
}

func (l *orderLog) indexOf(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, v := range l.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *recordingStep) ID() string   { return s.id }
func (s *recordingStep) Deps() []Step { return s.deps }
func (s *recordingStep) Make(ctx context.Context) error {
	if s.fail != nil {
		return s.fail
	}
	s.log.record(s.id)
	return nil
}

func TestGraphRunsDependenciesBeforeDependents(t *testing.T) {
	log := &orderLog{}
	extract := &recordingStep{id: "extract", log: log}
	device1 := &recordingStep{id: "device1", deps: []Step{extract}, log: log}
	device2 := &recordingStep{id: "device2", deps: []Step{extract}, log: log}
	library := &recordingStep{id: "library", deps: []Step{device1, device2}, log: log}

	g := NewGraph()
	if err := g.Run(context.Background(), library); err != nil {
		t.Fatalf("Run: %v", err)
	}

	extractIdx := log.indexOf("extract")
	device1Idx := log.indexOf("device1")
	device2Idx := log.indexOf("device2")
	libraryIdx := log.indexOf("library")

	if extractIdx == -1 || device1Idx == -1 || device2Idx == -1 || libraryIdx == -1 {
		t.Fatalf("not all steps ran: %v", log.order)
	}
	if extractIdx > device1Idx || extractIdx > device2Idx {
		t.Errorf("extract must run before both device steps, got order %v", log.order)
	}
	if device1Idx > libraryIdx || device2Idx > libraryIdx {
		t.Errorf("device steps must run before library, got order %v", log.order)
	}
}

func TestGraphMemoizesSharedDependency(t *testing.T) {
	log := &orderLog{}
	calls := 0
	var mu sync.Mutex
	shared := &countingStep{id: "shared", onMake: func() {
		mu.Lock()
		calls++
		mu.Unlock()
		log.record("shared")
	}}
	a := &recordingStep{id: "a", deps: []Step{shared}, log: log}
	b := &recordingStep{id: "b", deps: []Step{shared}, log: log}

	g := NewGraph()
	if err := g.Run(context.Background(), a, b); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("shared dependency made %d times, want exactly 1", calls)
	}
}

type countingStep struct {
	id     string
	onMake func()
}

func (s *countingStep) ID() string   { return s.id }
func (s *countingStep) Deps() []Step { return nil }
func (s *countingStep) Make(ctx context.Context) error {
	s.onMake()
	return nil
}

func TestGraphPropagatesDependencyFailure(t *testing.T) {
	log := &orderLog{}
	boom := fmt.Errorf("boom")
	failing := &recordingStep{id: "failing", log: log, fail: boom}
	dependent := &recordingStep{id: "dependent", deps: []Step{failing}, log: log}

	g := NewGraph()
	err := g.Run(context.Background(), dependent)
	if err == nil {
		t.Fatal("expected error from failing dependency, got nil")
	}
	if log.indexOf("dependent") != -1 {
		t.Errorf("dependent step ran despite a failed dependency")
	}
}

func TestGraphRejectsCancelledContext(t *testing.T) {
	log := &orderLog{}
	step := &recordingStep{id: "step", log: log}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGraph()
	if err := g.Run(ctx, step); err == nil {
		t.Fatal("expected error from a pre-cancelled context, got nil")
	}
}
