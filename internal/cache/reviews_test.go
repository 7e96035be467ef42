package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/storage"
)

func samplePayload(placeID string) *models.PlaceReviews {
	return &models.PlaceReviews{
		PlaceID:      placeID,
		BusinessName: "Cafe Orbit",
		Rating:       4.6,
		TotalReviews: 128,
		Reviews: []models.Review{
			{AuthorName: "Ana", Rating: 5, Text: "Great coffee", Time: 1700000000000},
			{AuthorName: "Ben", Rating: 4, Text: "Nice spot", Time: 1700000100000},
		},
		FetchedAt: time.Unix(1_700_000_200, 0).UTC(),
	}
}

func TestGetMiss(t *testing.T) {
	c := NewReviewCache(storage.NewMemoryStore())

	if entry := c.Get(context.Background(), "place-1", ""); entry != nil {
		t.Fatalf("expected miss, got %+v", entry)
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	c := NewReviewCache(storage.NewMemoryStore())
	ctx := context.Background()

	want := samplePayload("place-1")
	c.Put(ctx, "place-1", "grw_pro_x", want)

	got := c.Get(ctx, "place-1", "grw_pro_x")
	if got == nil {
		t.Fatal("expected hit")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	c := NewReviewCache(storage.NewMemoryStore())
	ctx := context.Background()

	c.Put(ctx, "place-1", "", samplePayload("place-1"))

	first := c.Get(ctx, "place-1", "")
	second := c.Get(ctx, "place-1", "")

	if !reflect.DeepEqual(first, second) {
		t.Error("two gets without an intervening put must return identical entries")
	}
}

func TestAnonymousCallersShareEntry(t *testing.T) {
	kv := storage.NewMemoryStore()
	c := NewReviewCache(kv)
	ctx := context.Background()

	c.Put(ctx, "place-1", "", samplePayload("place-1"))

	if kv.Len() != 1 {
		t.Fatalf("expected one cache line, got %d", kv.Len())
	}
	if _, err := kv.Get(ctx, "reviews:place-1:default"); err != nil {
		t.Error("anonymous entry should live under the default identity")
	}
}

func TestKeyedCallersGetOwnEntry(t *testing.T) {
	c := NewReviewCache(storage.NewMemoryStore())
	ctx := context.Background()

	c.Put(ctx, "place-1", "grw_pro_x", samplePayload("place-1"))

	if entry := c.Get(ctx, "place-1", "grw_premium_y"); entry != nil {
		t.Error("different identities must not share cache lines")
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set(context.Background(), "reviews:place-1:default", "{not json", 0)

	c := NewReviewCache(kv)
	if entry := c.Get(context.Background(), "place-1", ""); entry != nil {
		t.Error("corrupt entry should be treated as a miss")
	}
}

func TestPutOverwrites(t *testing.T) {
	c := NewReviewCache(storage.NewMemoryStore())
	ctx := context.Background()

	old := samplePayload("place-1")
	c.Put(ctx, "place-1", "", old)

	updated := samplePayload("place-1")
	updated.Rating = 4.9
	updated.FetchedAt = old.FetchedAt.Add(time.Hour)
	c.Put(ctx, "place-1", "", updated)

	got := c.Get(ctx, "place-1", "")
	if got.Rating != 4.9 || !got.FetchedAt.Equal(updated.FetchedAt) {
		t.Errorf("expected overwrite, got %+v", got)
	}
}
