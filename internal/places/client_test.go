package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reviewflow/reviews-api/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.PlacesConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
	})
}

func TestFetchReviewsNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("place_id"); got != "abc123" {
			t.Errorf("place_id = %q, want abc123", got)
		}
		w.Write([]byte(`{
			"status": "OK",
			"result": {
				"name": "Cafe Orbit",
				"rating": 4.6,
				"user_ratings_total": 128,
				"reviews": [
					{"author_name": "Ana", "rating": 5, "text": "Great", "time": 1700000000,
					 "profile_photo_url": "https://img/a.png", "relative_time_description": "a week ago"}
				]
			}
		}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchReviews(context.Background(), "abc123")
	if err != nil {
		t.Fatal(err)
	}

	if got.BusinessName != "Cafe Orbit" || got.Rating != 4.6 || got.TotalReviews != 128 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if len(got.Reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(got.Reviews))
	}

	review := got.Reviews[0]
	if review.Time != 1700000000000 {
		t.Errorf("timestamp not converted to millis: %d", review.Time)
	}
	if review.AuthorPhotoURL != "https://img/a.png" || review.RelativeTimeDescription != "a week ago" {
		t.Errorf("optional fields dropped: %+v", review)
	}
	if got.FetchedAt.IsZero() {
		t.Error("fetchedAt not set")
	}
}

func TestProviderStatusErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"status": "NOT_FOUND"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchReviews(context.Background(), "missing")

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Status != "NOT_FOUND" {
		t.Errorf("status = %q, want NOT_FOUND", upstreamErr.Status)
	}
	if calls != 1 {
		t.Errorf("provider status errors must not be retried, got %d calls", calls)
	}
}

type flakyTransport struct {
	failures int
	calls    int
	inner    http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.inner.RoundTrip(req)
}

func TestTransportFailureRetriesThenSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK", "result": {"name": "X", "rating": 4, "user_ratings_total": 1, "reviews": []}}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	transport := &flakyTransport{failures: 2, inner: http.DefaultTransport}
	client.httpClient = &http.Client{Transport: transport}

	got, err := client.FetchReviews(context.Background(), "abc")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if transport.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", transport.calls)
	}
	if got.BusinessName != "X" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestTransportFailureExhaustsRetries(t *testing.T) {
	client := testClient("http://example.invalid")
	transport := &flakyTransport{failures: 10, inner: http.DefaultTransport}
	client.httpClient = &http.Client{Transport: transport}

	_, err := client.FetchReviews(context.Background(), "abc")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if transport.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", transport.calls)
	}
}

func TestEmptyNameDefaultsToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK", "result": {"rating": 3.5, "user_ratings_total": 2, "reviews": []}}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchReviews(context.Background(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.BusinessName != "Unknown" {
		t.Errorf("businessName = %q, want Unknown", got.BusinessName)
	}
}
