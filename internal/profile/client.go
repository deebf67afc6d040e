// Package profile resolves uploader display attributes from the platform's
// user service. Lookups go through a circuit-breaker HTTP client and are
// cached in Redis; every failure degrades to an empty profile so listing
// media never depends on the user service being up.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matchdayhq/media-service/pkg/httpclient"
)

const cacheKeyPrefix = "uploader_profile:"

// UploaderProfile holds the display attributes attached to listed media.
type UploaderProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client fetches uploader profiles from the user service.
type Client struct {
	httpClient HTTPDoer
	cache      *redis.Client
	baseURL    string
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewClient creates a profile client. The cache may be nil, in which case
// every lookup goes to the user service.
func NewClient(httpClient HTTPDoer, cache *redis.Client, baseURL string, cacheTTL time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		baseURL:    baseURL,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Get resolves a single uploader profile, consulting the cache first.
func (c *Client) Get(ctx context.Context, uploaderID string) (*UploaderProfile, error) {
	if cached := c.fromCache(ctx, uploaderID); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/users/%s/profile", c.baseURL, uploaderID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call user service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "user-service")
	}

	var envelope struct {
		Data UploaderProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}

	c.toCache(ctx, &envelope.Data)
	return &envelope.Data, nil
}

// GetBatch resolves profiles for the given uploader ids. Missing or failed
// lookups are simply absent from the result; the caller treats enrichment as
// best-effort.
func (c *Client) GetBatch(ctx context.Context, uploaderIDs []string) map[string]UploaderProfile {
	profiles := make(map[string]UploaderProfile, len(uploaderIDs))

	for _, id := range uploaderIDs {
		if id == "" {
			continue
		}
		if _, done := profiles[id]; done {
			continue
		}

		p, err := c.Get(ctx, id)
		if err != nil {
			c.logger.WarnContext(ctx, "uploader profile lookup failed",
				slog.String("uploader_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		profiles[id] = *p
	}

	return profiles
}

func (c *Client) fromCache(ctx context.Context, uploaderID string) *UploaderProfile {
	if c.cache == nil {
		return nil
	}

	data, err := c.cache.Get(ctx, cacheKeyPrefix+uploaderID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "profile cache read failed",
				slog.String("uploader_id", uploaderID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	var p UploaderProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func (c *Client) toCache(ctx context.Context, p *UploaderProfile) {
	if c.cache == nil || p.ID == "" {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, cacheKeyPrefix+p.ID, data, c.cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache write failed",
			slog.String("uploader_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}
