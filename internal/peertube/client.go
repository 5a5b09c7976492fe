package peertube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"peerscout/internal/model"
)

// ErrNotFound reports an authoritative 404 from a content source: the video
// does not exist there and the identifier should not be retried against it.
var ErrNotFound = errors.New("peertube: video not found")

// VideoSummary is one entry of the list endpoint.
type VideoSummary struct {
	UUID      string `json:"uuid"`
	ShortUUID string `json:"shortUUID"`
	Name      string `json:"name"`
	IsLive    bool   `json:"isLive"`
}

// Client defines the content-source operations used by the resolver and the
// discovery job.
type Client interface {
	ListVideos(ctx context.Context, instanceBase, sort string, count, start int) ([]VideoSummary, error)
	GetVideo(ctx context.Context, instanceBase, id string) (model.VideoMetadata, error)
}

// HTTPClient queries PeerTube instance REST APIs. A single client is shared
// across instances; the base URL is passed per call.
type HTTPClient struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("PEERTUBE_MAX_ATTEMPTS", 3),
		baseBackoff: time.Duration(getEnvInt("PEERTUBE_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// ListVideos fetches one page of the instance video listing.
func (c *HTTPClient) ListVideos(ctx context.Context, instanceBase, sort string, count, start int) ([]VideoSummary, error) {
	base := strings.TrimRight(instanceBase, "/")
	u := fmt.Sprintf("%s/api/v1/videos?count=%d&start=%d&nsfw=both", base, clamp(count, 1, 100), start)
	if sort != "" {
		u += "&sort=" + url.QueryEscape(sort)
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("peertube list %s: status %d", base, resp.StatusCode)
	}
	var raw struct {
		Data []VideoSummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Data, nil
}

// GetVideo fetches full detail for one video identifier. Returns ErrNotFound
// on an authoritative 404.
func (c *HTTPClient) GetVideo(ctx context.Context, instanceBase, id string) (model.VideoMetadata, error) {
	var out model.VideoMetadata
	if id == "" {
		return out, errors.New("empty video id")
	}
	base := strings.TrimRight(instanceBase, "/")
	u := fmt.Sprintf("%s/api/v1/videos/%s", base, url.PathEscape(id))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return out, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("peertube detail %s: status %d", base, resp.StatusCode)
	}
	var raw struct {
		UUID        string   `json:"uuid"`
		ShortUUID   string   `json:"shortUUID"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Duration    float64  `json:"duration"`
		Views       int      `json:"views"`
		Likes       int      `json:"likes"`
		Dislikes    int      `json:"dislikes"`
		NSFW        bool     `json:"nsfw"`
		URL         string   `json:"url"`
		IsLive      bool     `json:"isLive"`
		Tags        []string `json:"tags"`
		Account     struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			Host        string `json:"host"`
		} `json:"account"`
		Channel struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			Host        string `json:"host"`
		} `json:"channel"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, err
	}
	out = model.VideoMetadata{
		UUID:        raw.UUID,
		ShortUUID:   raw.ShortUUID,
		Name:        raw.Name,
		Description: raw.Description,
		Tags:        raw.Tags,
		Duration:    raw.Duration,
		Views:       raw.Views,
		Likes:       raw.Likes,
		Dislikes:    raw.Dislikes,
		NSFW:        raw.NSFW,
		URL:         raw.URL,
		Account:     model.Account(raw.Account),
		Channel:     model.Account(raw.Channel),
	}
	return out, nil
}

// IsLive asks the source for the authoritative live flag of a video.
func (c *HTTPClient) IsLive(ctx context.Context, instanceBase, id string) (bool, error) {
	base := strings.TrimRight(instanceBase, "/")
	u := fmt.Sprintf("%s/api/v1/videos/%s", base, url.PathEscape(id))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("peertube detail %s: status %d", base, resp.StatusCode)
	}
	var raw struct {
		IsLive bool `json:"isLive"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return false, err
	}
	return raw.IsLive, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}
