package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
	"github.com/Corphon/Chronicle/internal/storage"
	"github.com/Corphon/Chronicle/internal/utils"
)

// scriptedStory answers CompleteStory from a queue of replies; the last
// reply repeats once the queue is drained.
type scriptedStory struct {
	mu       sync.Mutex
	replies  []func(llm.StoryRequest) (string, error)
	requests []llm.StoryRequest
}

func (s *scriptedStory) GetName() string { return "scripted" }
func (s *scriptedStory) Initialize(map[string]string) error { return nil }

func (s *scriptedStory) CompleteStory(_ context.Context, req llm.StoryRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()
	return reply(req)
}

func (s *scriptedStory) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func reply(text string) func(llm.StoryRequest) (string, error) {
	return func(llm.StoryRequest) (string, error) { return text, nil }
}

func fail(err error) func(llm.StoryRequest) (string, error) {
	return func(llm.StoryRequest) (string, error) { return "", err }
}

type imageCall struct {
	req llm.ImageRequest
}

type scriptedImages struct {
	mu      sync.Mutex
	byModel map[string]func() (*llm.ImageResult, error)
	calls   []imageCall
}

func (s *scriptedImages) GenerateImage(_ context.Context, req llm.ImageRequest) (*llm.ImageResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, imageCall{req: req})
	fn := s.byModel[req.Model]
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn()
}

func (s *scriptedImages) models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.req.Model
	}
	return out
}

type staticSettings struct{ s models.Settings }

func (f staticSettings) Get() models.Settings { return f.s }

// switchableSettings lets a test change settings mid-session, as PUT
// /api/settings does.
type switchableSettings struct {
	mu sync.Mutex
	s  models.Settings
}

func (f *switchableSettings) Get() models.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *switchableSettings) Set(s models.Settings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = s
}

// waits records backoff waits without sleeping.
type waits struct {
	mu sync.Mutex
	d  []time.Duration
}

func (w *waits) sleeper() retry.Option {
	return retry.WithSleeper(func(_ context.Context, d time.Duration) error {
		w.mu.Lock()
		w.d = append(w.d, d)
		w.mu.Unlock()
		return nil
	})
}

func (w *waits) all() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration{}, w.d...)
}

func staticProviders(p llm.StoryProvider) ProviderFactory {
	return func(models.ProviderName, string) (llm.StoryProvider, error) { return p, nil }
}

type recordingSink struct {
	mu     sync.Mutex
	events []GameEvent
}

func (r *recordingSink) Publish(ev GameEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func fileStore(t *testing.T) storage.SnapshotStore {
	t.Helper()
	fs, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return storage.NewFileSnapshotStore(fs)
}

func newMetrics() *utils.Metrics { return utils.NewMetrics() }
