// Package store is the hierarchical key-value persistence boundary. Values
// live at slash-separated paths, support atomic multi-field updates, and can
// be observed through live subscriptions so the dashboard sees writes as
// they happen.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/voice-audit/internal/types"
)

// Event is one observed write under a subscribed prefix.
type Event struct {
	Path  string
	Value json.RawMessage
}

// Store is the persistence contract the pipeline components depend on.
// Implementations must make Set a full overwrite and Update an atomic
// field-level merge into the existing object at the path.
type Store interface {
	// Get unmarshals the value at path into dest. The boolean reports
	// whether the path existed.
	Get(ctx context.Context, path string, dest any) (bool, error)
	// Set writes value at path, replacing any previous value.
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the object at path atomically, creating
	// the object if the path is empty.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the value at path. Deleting a missing path is a no-op.
	Delete(ctx context.Context, path string) error
	// List returns every (path, value) pair under prefix.
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
	// Subscribe streams write events for paths under prefix until cancel
	// is called or ctx ends.
	Subscribe(ctx context.Context, prefix string) (<-chan Event, func())
	// Close releases the store's resources.
	Close()
}

// Path helpers. Keeping path construction in one place prevents handler and
// pipeline code from drifting apart on layout.

func ProfilePath(profileID string) string {
	return fmt.Sprintf("profiles/%s", profileID)
}

func PromptPath(profileID string, category types.Category, seq int) string {
	return fmt.Sprintf("profiles/%s/prompts/%s/%d", profileID, category, seq)
}

func PromptsPrefix(profileID string) string {
	return fmt.Sprintf("profiles/%s/prompts/", profileID)
}

func ResultPath(profileID string, promptID types.PromptID, engine types.Engine) string {
	return fmt.Sprintf("profiles/%s/results/%s/%s", profileID, promptID, engine)
}

func ResultsPrefix(profileID string) string {
	return fmt.Sprintf("profiles/%s/results/", profileID)
}

func ReportPath(profileID string) string {
	return fmt.Sprintf("profiles/%s/reports/overall", profileID)
}

func RunPath(profileID, runID string) string {
	return fmt.Sprintf("profiles/%s/runs/%s", profileID, runID)
}

// notifier fans out write events to in-process subscribers. Both store
// implementations embed it; subscription delivery is per-process.
type notifier struct {
	mu   sync.Mutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	prefix string
	ch     chan Event
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]*subscription)}
}

func (n *notifier) subscribe(ctx context.Context, prefix string) (<-chan Event, func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	sub := &subscription{prefix: prefix, ch: make(chan Event, 64)}
	n.subs[id] = sub
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if s, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(s.ch)
		}
		n.mu.Unlock()
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return sub.ch, cancel
}

func (n *notifier) publish(path string, value json.RawMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		if !strings.HasPrefix(path, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- Event{Path: path, Value: value}:
		default:
			// Slow subscriber: drop rather than block writers.
		}
	}
}
