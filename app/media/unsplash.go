package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://api.unsplash.com"
	resolveTimeout = 10 * time.Second
	maxImageBytes  = 5 << 20
)

// Image is a resolved, downloaded attachment
type Image struct {
	Data        []byte
	ContentType string
	SourceURL   string
}

// Resolver finds a stock photo for a search term via the Unsplash
// search API and downloads it. Every failure is non-fatal for the
// caller: a post without an image is still a valid post.
type Resolver struct {
	httpClient *http.Client
	accessKey  string
	baseURL    string
}

func NewResolver(httpClient *http.Client, accessKey string) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		accessKey:  accessKey,
		baseURL:    defaultBaseURL,
	}
}

// Resolve returns an image matching query, or an error when none could
// be fetched. A single attempt, no retries: image selection is a
// best-effort decoration.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Image, error) {
	if r.accessKey == "" {
		return nil, fmt.Errorf("no access key configured")
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	photoURL, err := r.search(ctx, query)
	if err != nil {
		return nil, err
	}

	image, err := r.download(ctx, photoURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("Resolved image", "query", query, "url", photoURL, "bytes", len(image.Data))

	return image, nil
}

func (r *Resolver) search(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=1&orientation=landscape",
		r.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+r.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(payload.Results) == 0 || payload.Results[0].URLs.Regular == "" {
		return "", fmt.Errorf("no results for %q", query)
	}

	return payload.Results[0].URLs.Regular, nil
}

func (r *Resolver) download(ctx context.Context, photoURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return &Image{Data: data, ContentType: contentType, SourceURL: photoURL}, nil
}
