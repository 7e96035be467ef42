package handler

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewflow/reviews-api/internal/analytics"
	"github.com/reviewflow/reviews-api/internal/cache"
	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/ratelimit"
	"github.com/reviewflow/reviews-api/internal/tier"
	"go.uber.org/zap"
)

// ReviewsHandler drives one widget request through tier resolution, domain
// and activity checks, rate limiting, the review cache and, on a miss, the
// upstream fetch. Cold misses for the same key can race to the upstream;
// the last write wins and both callers get a valid payload.
type ReviewsHandler struct {
	resolver  *tier.Resolver
	limiter   ratelimit.Limiter
	cache     *cache.ReviewCache
	fetcher   ReviewFetcher
	analytics *analytics.Recorder

	// now is swapped out in freshness tests.
	now func() time.Time
}

// ReviewFetcher fetches normalized reviews for a place.
type ReviewFetcher interface {
	FetchReviews(ctx context.Context, placeID string) (*models.PlaceReviews, error)
}

func NewReviewsHandler(resolver *tier.Resolver, limiter ratelimit.Limiter, reviewCache *cache.ReviewCache, fetcher ReviewFetcher, recorder *analytics.Recorder) *ReviewsHandler {
	return &ReviewsHandler{
		resolver:  resolver,
		limiter:   limiter,
		cache:     reviewCache,
		fetcher:   fetcher,
		analytics: recorder,
		now:       time.Now,
	}
}

// Get handles GET /api/reviews/:placeId.
func (h *ReviewsHandler) Get(c *gin.Context) {
	placeID, apiKey, policy, ok := h.gate(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")

	// Fresh cache short-circuits the upstream entirely.
	entry := h.cache.Get(c.Request.Context(), placeID, apiKey)
	if entry != nil {
		cacheAge := h.now().Sub(entry.FetchedAt)
		if cacheAge < time.Duration(policy.CacheDuration)*time.Second {
			h.respondSuccess(c, entry, policy, true, gin.H{
				"cacheAge": int(cacheAge.Seconds()),
			})
			return
		}
	}

	if testMode(c) {
		h.respondSuccess(c, mockReviews(placeID, policy), policy, false, nil)
		return
	}

	fetched, err := h.fetcher.FetchReviews(c.Request.Context(), placeID)
	if err != nil {
		logger.Warn("upstream fetch failed",
			zap.String("place_id", placeID),
			zap.Error(err),
		)

		// Serve whatever we still have rather than erroring the widget.
		if entry != nil {
			h.respondSuccess(c, entry, policy, true, gin.H{
				"cacheAge": int(h.now().Sub(entry.FetchedAt).Seconds()),
				"stale":    true,
			})
			return
		}

		respondError(c, http.StatusInternalServerError, "Failed to fetch reviews from provider")
		return
	}

	h.cache.Put(c.Request.Context(), placeID, apiKey, fetched)
	if h.analytics != nil && apiKey != "" {
		h.analytics.RecordView(apiKey, placeID)
	}

	h.respondSuccess(c, fetched, policy, false, nil)
}

// Seed handles POST /api/reviews/:placeId, the test-harness path that loads
// caller-supplied data straight into the cache.
func (h *ReviewsHandler) Seed(c *gin.Context) {
	placeID, apiKey, _, ok := h.gate(c)
	if !ok {
		return
	}

	if !testMode(c) {
		respondError(c, http.StatusBadRequest, "Invalid POST request")
		return
	}

	var body struct {
		MockData *models.PlaceReviews `json:"mockData"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.MockData == nil {
		respondError(c, http.StatusBadRequest, "Request body must contain mockData")
		return
	}

	mock := body.MockData
	mock.PlaceID = placeID
	if mock.FetchedAt.IsZero() {
		mock.FetchedAt = h.now()
	}

	h.cache.Put(c.Request.Context(), placeID, apiKey, mock)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Mock data stored",
		"data":    mock,
	})
}

// gate runs the shared front half of the state machine: place id parsing,
// tier resolution, activity and domain checks, rate limiting. Returns
// ok=false after writing the error response.
func (h *ReviewsHandler) gate(c *gin.Context) (placeID, apiKey string, policy tier.Policy, ok bool) {
	placeID = strings.TrimSpace(c.Param("placeId"))
	if placeID == "" {
		respondError(c, http.StatusBadRequest, "Missing or invalid place ID")
		return "", "", tier.Policy{}, false
	}

	apiKey = callerKey(c)
	policy = h.resolver.Resolve(c.Request.Context(), apiKey)

	if apiKey != "" && !policy.IsActive {
		respondError(c, http.StatusForbidden, "API key is inactive or has been revoked")
		return "", "", tier.Policy{}, false
	}

	if apiKey != "" && !policy.Wildcard() {
		if domain := refererDomain(c); domain != "" && !policy.DomainAllowed(domain) {
			respondError(c, http.StatusForbidden,
				fmt.Sprintf("This API key is not authorized for use on %s", domain))
			return "", "", tier.Policy{}, false
		}
	}

	if !testMode(c) {
		limitKey := apiKey
		if limitKey == "" {
			limitKey = placeID
		}

		if !h.limiter.Allow(c.Request.Context(), limitKey, policy.RequestsPerMinute) {
			c.Header("Retry-After", "60")
			respondError(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later")
			return "", "", tier.Policy{}, false
		}
	}

	return placeID, apiKey, policy, true
}

func (h *ReviewsHandler) respondSuccess(c *gin.Context, entry *models.PlaceReviews, policy tier.Policy, fromCache bool, extra gin.H) {
	response := gin.H{
		"status":           "success",
		"fromCache":        fromCache,
		"data":             entry.Capped(policy.MaxReviews),
		"subscriptionTier": policy.Tier,
		"cacheDuration":    policy.CacheDuration,
		"maxReviews":       policy.MaxReviews,
	}
	for k, v := range extra {
		response[k] = v
	}

	c.JSON(http.StatusOK, response)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"message": message,
	})
}

func callerKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-Widget-API-Key")); key != "" {
		return key
	}
	return strings.TrimSpace(c.Query("api_key"))
}

func testMode(c *gin.Context) bool {
	return c.GetHeader("X-Test-Mode") == "true"
}

func refererDomain(c *gin.Context) string {
	referer := c.GetHeader("Referer")
	if referer == "" {
		return ""
	}

	parsed, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// mockReviews builds the deterministic payload served in test mode, sized to
// the tier's review cap.
func mockReviews(placeID string, policy tier.Policy) *models.PlaceReviews {
	now := time.Now()
	day := 24 * time.Hour

	all := []models.Review{
		{AuthorName: "Test User 1", Rating: 5, Text: "This is a test review with 5 stars. Great service!", Time: now.Add(-7 * day).UnixMilli()},
		{AuthorName: "Test User 2", Rating: 4, Text: "This is a test review with 4 stars. Good experience.", Time: now.Add(-14 * day).UnixMilli()},
		{AuthorName: "Test User 3", Rating: 3, Text: "This is a test review with 3 stars. Average service.", Time: now.Add(-30 * day).UnixMilli()},
		{AuthorName: "Test User 4", Rating: 5, Text: "Another 5-star review for higher tier testing.", Time: now.Add(-2 * day).UnixMilli()},
		{AuthorName: "Test User 5", Rating: 4, Text: "Another 4-star review for higher tier testing.", Time: now.Add(-10 * day).UnixMilli()},
		{AuthorName: "Test User 6", Rating: 5, Text: "PRO tier review with 5 stars.", Time: now.Add(-15 * day).UnixMilli()},
		{AuthorName: "Test User 7", Rating: 3, Text: "PRO tier review with 3 stars.", Time: now.Add(-20 * day).UnixMilli()},
		{AuthorName: "Test User 8", Rating: 5, Text: "Premium tier review with 5 stars.", Time: now.Add(-5 * day).UnixMilli()},
		{AuthorName: "Test User 9", Rating: 4, Text: "Premium tier review with 4 stars.", Time: now.Add(-25 * day).UnixMilli()},
		{AuthorName: "Test User 10", Rating: 5, Text: "Another premium tier review with 5 stars.", Time: now.Add(-8 * day).UnixMilli()},
	}

	count := policy.MaxReviews
	if count <= 0 || count > len(all) {
		count = len(all)
	}
	reviews := all[:count]

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	rating := math.Round(float64(total)/float64(len(reviews))*10) / 10

	return &models.PlaceReviews{
		PlaceID:      placeID,
		BusinessName: fmt.Sprintf("Test Business (%s)", policy.Tier),
		Rating:       rating,
		TotalReviews: len(reviews),
		Reviews:      reviews,
		FetchedAt:    now,
	}
}
