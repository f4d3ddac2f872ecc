// Package contentapi provides a client for the content listing service.
package contentapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/domain/video"
)

// Client is a content listing service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config represents content client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration // listing request budget, 15s when zero
}

// listResponse is the wire shape of GET /videos.
type listResponse struct {
	Videos []struct {
		ID           string  `json:"id"`
		URL          string  `json:"url"`
		ThumbnailURL string  `json:"thumbnailUrl"`
		Filename     string  `json:"filename"`
		Duration     float64 `json:"duration"` // seconds
	} `json:"videos"`
}

// New creates a content client. When ts is non-nil, requests carry the
// identity provider's bearer token.
func New(cfg Config, ts oauth2.TokenSource) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("content base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if ts != nil {
		httpClient.Transport = &oauth2.Transport{Source: ts}
	}

	return &Client{baseURL: cfg.BaseURL, httpClient: httpClient}, nil
}

// ListVideos retrieves the video feed. Entries missing an ID or URL are
// discarded client-side; a non-2xx status or malformed body is a fetch
// failure.
func (c *Client) ListVideos(ctx context.Context) ([]video.Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build listing request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.NetworkError{Op: "list videos", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperr.NetworkError{
			Op:  "list videos",
			Err: errors.Newf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.NetworkError{Op: "list videos", Err: err}
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &apperr.NetworkError{
			Op:  "list videos",
			Err: errors.Wrap(err, "malformed listing body"),
		}
	}

	raw := make([]video.Video, 0, len(parsed.Videos))
	for _, e := range parsed.Videos {
		raw = append(raw, video.Video{
			ID:           e.ID,
			SourceURL:    e.URL,
			ThumbnailURL: e.ThumbnailURL,
			Filename:     e.Filename,
			Duration:     time.Duration(e.Duration * float64(time.Second)),
		})
	}

	clean := video.Sanitize(raw)
	if dropped := len(raw) - len(clean); dropped > 0 {
		zlog.Debug().Msgf("contentapi: discarded %d incomplete entries", dropped)
	}
	return clean, nil
}
