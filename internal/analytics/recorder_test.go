package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/storage"
)

type fakeSink struct {
	mu    sync.Mutex
	calls []string // "<id>|<date>"
}

func (f *fakeSink) IncrementDaily(ctx context.Context, apiKeyID uuid.UUID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiKeyID.String()+"|"+date)
	return nil
}

func TestRecordUsageReachesSink(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, nil, 8)
	r.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	id := uuid.New()
	r.RecordUsage(id)
	r.RecordUsage(id)
	r.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.calls) != 2 {
		t.Fatalf("expected 2 increments, got %d", len(sink.calls))
	}
	want := id.String() + "|2026-08-29"
	if sink.calls[0] != want {
		t.Errorf("call = %q, want %q", sink.calls[0], want)
	}
}

func TestRecordViewAccumulates(t *testing.T) {
	kv := storage.NewMemoryStore()
	r := NewRecorder(nil, kv, 8)
	r.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	r.RecordView("grw_pro_x", "place-1")
	r.RecordView("grw_pro_x", "place-1")
	r.RecordView("grw_pro_x", "place-2")
	r.Stop()

	val, err := kv.Get(context.Background(), "analytics:grw_pro_x:2026-08-29")
	if err != nil {
		t.Fatalf("counter missing: %v", err)
	}

	var counter viewCounter
	if err := json.Unmarshal([]byte(val), &counter); err != nil {
		t.Fatal(err)
	}
	if counter.Views != 3 {
		t.Errorf("views = %d, want 3", counter.Views)
	}
	if counter.PlaceIDs["place-1"] != 2 || counter.PlaceIDs["place-2"] != 1 {
		t.Errorf("unexpected place breakdown: %+v", counter.PlaceIDs)
	}
}

func TestAnonymousViewsDropped(t *testing.T) {
	kv := storage.NewMemoryStore()
	r := NewRecorder(nil, kv, 8)

	r.RecordView("", "place-1")
	r.Stop()

	if kv.Len() != 0 {
		t.Error("anonymous views must not create counters")
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	// No sinks and a tiny buffer: extra events drop instead of blocking.
	r := NewRecorder(nil, nil, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.RecordUsage(uuid.New())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked")
	}
	r.Stop()
}
