package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"birdfeed/app/compose"
	"birdfeed/app/media"
)

const (
	defaultAPIBase    = "https://api.twitter.com"
	defaultUploadBase = "https://upload.twitter.com"

	// One post per 5s keeps well under the write quota
	postsPerSecond = 0.2
)

// Channel delivers a composed post somewhere and returns the external
// identifier the destination assigned to it.
type Channel interface {
	Publish(ctx context.Context, post compose.Post, image *media.Image) (string, error)
}

// TwitterChannel posts via the v2 tweet endpoint, with media staged
// through the v1.1 upload endpoint. Requests are paced by a client-side
// rate limiter on top of whatever the server enforces.
type TwitterChannel struct {
	httpClient *http.Client
	signer     *oauth1Signer
	limiter    *rate.Limiter
	apiBase    string
	uploadBase string
}

func NewTwitterChannel(httpClient *http.Client, creds Credentials) *TwitterChannel {
	return &TwitterChannel{
		httpClient: httpClient,
		signer:     newOAuth1Signer(creds),
		limiter:    rate.NewLimiter(rate.Limit(postsPerSecond), 1),
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
	}
}

func (t *TwitterChannel) Publish(ctx context.Context, post compose.Post, image *media.Image) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", &TransientError{Err: err}
	}

	var mediaID string
	if image != nil {
		id, err := t.uploadMedia(ctx, image)
		if err != nil {
			// A failed upload degrades the post to text-only
			slog.Warn("Media upload failed, posting without image", "error", err)
		} else {
			mediaID = id
		}
	}

	return t.createTweet(ctx, post.Text, mediaID)
}

func (t *TwitterChannel) createTweet(ctx context.Context, text, mediaID string) (string, error) {
	payload := map[string]any{"text": text}
	if mediaID != "" {
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &PermanentError{Err: fmt.Errorf("failed to encode tweet payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBase+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", &PermanentError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	t.signer.Authorize(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &PermanentError{Err: fmt.Errorf("failed to decode tweet response: %w", err)}
	}
	if result.Data.ID == "" {
		return "", &PermanentError{Err: fmt.Errorf("tweet response carried no id")}
	}

	return result.Data.ID, nil
}

// uploadMedia stages the image through the v1.1 upload endpoint. The
// body is multipart, which stays outside the OAuth signature base; a
// form-encoded body would have to be signed.
func (t *TwitterChannel) uploadMedia(ctx context.Context, image *media.Image) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return "", fmt.Errorf("failed to build upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.uploadBase+"/1.1/media/upload.json", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	t.signer.Authorize(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("media upload returned HTTP %d: %s", resp.StatusCode, snippet)
	}

	var result struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.MediaIDString == "" {
		return "", fmt.Errorf("upload response carried no media id")
	}

	return result.MediaIDString, nil
}

// classifyStatus maps an error response to transient or permanent.
// Rate limits and server errors are worth retrying, everything else
// means the request itself is wrong.
func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{Err: err, RetryAfter: parseRetryAfter(resp)}
	case resp.StatusCode >= 500:
		return &TransientError{Err: err}
	default:
		return &PermanentError{Err: err}
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
