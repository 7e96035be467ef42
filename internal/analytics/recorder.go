package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/storage"
	"go.uber.org/zap"
)

// View counters stick around one billing month.
const viewCounterTTL = 31 * 24 * time.Hour

// UsageSink is the slice of the usage stats repository the worker needs.
type UsageSink interface {
	IncrementDaily(ctx context.Context, apiKeyID uuid.UUID, date string) error
}

type eventKind int

const (
	eventUsage eventKind = iota
	eventView
)

type event struct {
	kind     eventKind
	apiKeyID uuid.UUID
	apiKey   string
	placeID  string
}

// Recorder is the fire-and-forget side-effect queue. Handlers enqueue and
// move on; a single background worker applies the writes on its own context
// so they complete even if the client already disconnected. A full buffer
// drops the event rather than blocking a request.
type Recorder struct {
	events chan event
	done   chan struct{}

	usage UsageSink
	kv    storage.KV
	now   func() time.Time
}

// NewRecorder starts the worker. usage and kv may each be nil; the
// corresponding events are then dropped silently.
func NewRecorder(usage UsageSink, kv storage.KV, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	r := &Recorder{
		events: make(chan event, bufferSize),
		done:   make(chan struct{}),
		usage:  usage,
		kv:     kv,
		now:    time.Now,
	}

	go r.run()

	return r
}

// RecordUsage queues a daily request-count increment for a key.
func (r *Recorder) RecordUsage(apiKeyID uuid.UUID) {
	r.enqueue(event{kind: eventUsage, apiKeyID: apiKeyID})
}

// RecordView queues a widget view for the per-day analytics counters.
func (r *Recorder) RecordView(apiKey, placeID string) {
	if apiKey == "" {
		return
	}
	r.enqueue(event{kind: eventView, apiKey: apiKey, placeID: placeID})
}

func (r *Recorder) enqueue(ev event) {
	select {
	case r.events <- ev:
	default:
		logger.Warn("analytics buffer full, dropping event")
	}
}

// Stop drains queued events and shuts the worker down.
func (r *Recorder) Stop() {
	close(r.events)
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)

	for ev := range r.events {
		// Not tied to any request lifetime; bounded so a dead database
		// cannot wedge the worker.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		switch ev.kind {
		case eventUsage:
			r.applyUsage(ctx, ev)
		case eventView:
			r.applyView(ctx, ev)
		}

		cancel()
	}
}

func (r *Recorder) applyUsage(ctx context.Context, ev event) {
	if r.usage == nil {
		return
	}

	date := r.now().UTC().Format("2006-01-02")
	if err := r.usage.IncrementDaily(ctx, ev.apiKeyID, date); err != nil {
		logger.Warn("usage stats update failed",
			zap.String("api_key_id", ev.apiKeyID.String()),
			zap.Error(err),
		)
	}
}

// Per-day view counters in KV: total views plus a per-place breakdown.
type viewCounter struct {
	Views    int64            `json:"views"`
	PlaceIDs map[string]int64 `json:"placeIds"`
}

func (r *Recorder) applyView(ctx context.Context, ev event) {
	if r.kv == nil {
		return
	}

	date := r.now().UTC().Format("2006-01-02")
	counterKey := "analytics:" + ev.apiKey + ":" + date

	counter := viewCounter{PlaceIDs: make(map[string]int64)}
	if val, err := r.kv.Get(ctx, counterKey); err == nil {
		if err := json.Unmarshal([]byte(val), &counter); err != nil {
			counter = viewCounter{PlaceIDs: make(map[string]int64)}
		}
		if counter.PlaceIDs == nil {
			counter.PlaceIDs = make(map[string]int64)
		}
	}

	counter.Views++
	counter.PlaceIDs[ev.placeID]++

	data, err := json.Marshal(counter)
	if err != nil {
		return
	}

	if err := r.kv.Set(ctx, counterKey, string(data), viewCounterTTL); err != nil {
		logger.Warn("analytics counter write failed", zap.String("api_key", ev.apiKey), zap.Error(err))
	}
}
