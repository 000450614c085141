// Package vendorapi is the HTTP client for the vendor's override container
// API. Reads (list/get) are retried with bounded backoff and may be served
// from an optional Redis cache; the whole-container replace is submitted
// exactly once, never retried.
package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"overdesk/internal/model"
)

const defaultMaxRetries = 3

// StatusError reports a non-2xx vendor response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("vendor returned http %d", e.Code)
	}
	return fmt.Sprintf("vendor returned http %d: %s", e.Code, e.Body)
}

// Client calls the vendor override API with a static token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client with baseURL and static auth token. A zero
// timeout falls back to 10s.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
		logger:     logger.With().Str("component", "vendorapi").Logger(),
	}
}

// UseRateLimit caps outgoing vendor requests at r per second with the given
// burst. Protects the vendor from an over-eager console.
func (c *Client) UseRateLimit(r float64, burst int) {
	if r <= 0 || burst <= 0 {
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(r), burst)
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ListContainers fetches the shallow container list (no entries).
func (c *Client) ListContainers(ctx context.Context) ([]model.ContainerSummary, error) {
	endpoint := fmt.Sprintf("%s/api/v2/override-containers", c.baseURL)
	var wrap struct {
		Containers []model.ContainerSummary `json:"containers"`
	}

	if c.readCache(ctx, cacheKeyList, &wrap) {
		return wrap.Containers, nil
	}

	if err := c.doGetRetry(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKeyList, wrap)
	return wrap.Containers, nil
}

// GetContainer fetches one container including its entry collection.
func (c *Client) GetContainer(ctx context.Context, id string) (*model.Container, error) {
	endpoint := fmt.Sprintf("%s/api/v2/override-containers/%s", c.baseURL, url.PathEscape(id))
	key := cacheKeyContainer(id)
	var container model.Container

	if c.readCache(ctx, key, &container) {
		return &container, nil
	}

	if err := c.doGetRetry(ctx, endpoint, &container); err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, container)
	return &container, nil
}

// ReplaceContainer submits the full container payload (whole-object PUT) and
// returns the server's materialized container, which is authoritative
// post-write. Never retried: a half-applied whole-container write must not
// be blindly resubmitted.
func (c *Client) ReplaceContainer(ctx context.Context, id string, payload *model.Container) (*model.Container, error) {
	endpoint := fmt.Sprintf("%s/api/v2/override-containers/%s", c.baseURL, url.PathEscape(id))

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var updated model.Container
	if err := c.do(req, &updated); err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return &updated, nil
}

const cacheKeyList = "vendor:containers"

func cacheKeyContainer(id string) string {
	return "vendor:container:" + id
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

// invalidate drops cached reads touched by a successful replace so the next
// fetch sees the server's post-write state.
func (c *Client) invalidate(ctx context.Context, id string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKeyList, cacheKeyContainer(id)).Err()
}

// doGetRetry performs a GET with bounded exponential backoff. Transport
// errors and 5xx responses are retried; 4xx responses are not.
func (c *Client) doGetRetry(ctx context.Context, endpoint string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 250 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return err
		}
		lastErr = c.do(req, out)
		if lastErr == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code < 500 {
			return lastErr
		}
		c.logger.Warn().Err(lastErr).Int("attempt", attempt+1).Str("endpoint", endpoint).Msg("vendor read failed")
	}
	return lastErr
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
