package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reviewflow/reviews-api/internal/config"
	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/models"
	"go.uber.org/zap"
)

// UpstreamError carries the provider's own non-OK status field. These are
// definitive answers from Google (INVALID_REQUEST, NOT_FOUND, ...) and are
// never retried.
type UpstreamError struct {
	Status string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("places: provider returned status %s", e.Status)
}

// Client fetches and normalizes place reviews from the Google Places API.
// It retries transport failures with exponential backoff and trips a circuit
// breaker when the provider stays down. It does not cache and does not rate
// limit; it is a normalizing transport only.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxRetries  int
	backoffBase time.Duration
	breaker     *Breaker
}

func NewClient(cfg config.PlacesConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		breaker:     NewBreaker(BreakerConfig{}),
	}
}

// Raw provider shapes. Only the fields we request are decoded.
type detailsResponse struct {
	Status string        `json:"status"`
	Result detailsResult `json:"result"`
}

type detailsResult struct {
	Name             string      `json:"name"`
	Rating           float64     `json:"rating"`
	UserRatingsTotal int         `json:"user_ratings_total"`
	Reviews          []rawReview `json:"reviews"`
}

type rawReview struct {
	AuthorName              string `json:"author_name"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"` // unix seconds
	ProfilePhotoURL         string `json:"profile_photo_url"`
	RelativeTimeDescription string `json:"relative_time_description"`
}

// FetchReviews retrieves the normalized review payload for a place.
func (c *Client) FetchReviews(ctx context.Context, placeID string) (*models.PlaceReviews, error) {
	var reviews *models.PlaceReviews

	err := c.breaker.Call(func() error {
		var fetchErr error
		reviews, fetchErr = c.fetch(ctx, placeID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return reviews, nil
}

func (c *Client) fetch(ctx context.Context, placeID string) (*models.PlaceReviews, error) {
	requestURL := fmt.Sprintf("%s?place_id=%s&fields=name,rating,user_ratings_total,reviews&key=%s",
		c.baseURL, url.QueryEscape(placeID), url.QueryEscape(c.apiKey))

	resp, err := c.doWithRetry(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places: provider returned HTTP %d", resp.StatusCode)
	}

	var details detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("places: failed to decode response: %w", err)
	}

	if details.Status != "OK" {
		return nil, &UpstreamError{Status: details.Status}
	}

	return normalize(placeID, details.Result), nil
}

// doWithRetry issues the request, retrying transport-level failures with
// exponential backoff (1s, 2s, 4s by default). HTTP-status and provider
// errors are not transport failures and pass straight through.
func (c *Client) doWithRetry(ctx context.Context, requestURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		backoff := c.backoffBase * (1 << (attempt - 1))
		logger.Warn("places fetch failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("places: fetch failed after %d attempts: %w", c.maxRetries, lastErr)
}

func normalize(placeID string, result detailsResult) *models.PlaceReviews {
	reviews := make([]models.Review, 0, len(result.Reviews))
	for _, r := range result.Reviews {
		reviews = append(reviews, models.Review{
			AuthorName:              r.AuthorName,
			Rating:                  r.Rating,
			Text:                    r.Text,
			Time:                    r.Time * 1000,
			AuthorPhotoURL:          r.ProfilePhotoURL,
			RelativeTimeDescription: r.RelativeTimeDescription,
		})
	}

	name := result.Name
	if name == "" {
		name = "Unknown"
	}

	return &models.PlaceReviews{
		PlaceID:      placeID,
		BusinessName: name,
		Rating:       result.Rating,
		TotalReviews: result.UserRatingsTotal,
		Reviews:      reviews,
		FetchedAt:    time.Now(),
	}
}

func (c *Client) BreakerState() BreakerState {
	return c.breaker.State()
}

func (c *Client) ResetBreaker() {
	c.breaker.Reset()
}
