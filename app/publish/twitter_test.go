package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"birdfeed/app/media"
)

func newTestChannel(t *testing.T, handler http.Handler) *TwitterChannel {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	channel := NewTwitterChannel(server.Client(), Credentials{
		APIKey:            "key",
		APISecret:         "secret",
		AccessToken:       "token",
		AccessTokenSecret: "token-secret",
	})
	channel.apiBase = server.URL
	channel.uploadBase = server.URL
	channel.limiter = rate.NewLimiter(rate.Inf, 1)

	return channel
}

func TestTwitterChannel_CreateTweet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "OAuth ") {
			t.Errorf("Authorization header = %q, want OAuth prefix", auth)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"1234567890"}}`)
	})

	channel := newTestChannel(t, mux)

	id, err := channel.Publish(context.Background(), testPost(), nil)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if id != "1234567890" {
		t.Errorf("External ID = %q, want 1234567890", id)
	}
}

func TestTwitterChannel_RateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	channel := newTestChannel(t, mux)

	_, err := channel.Publish(context.Background(), testPost(), nil)

	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("Expected *TransientError, got %T: %v", err, err)
	}
	if transient.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", transient.RetryAfter)
	}
}

func TestTwitterChannel_Forbidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	channel := newTestChannel(t, mux)

	_, err := channel.Publish(context.Background(), testPost(), nil)

	var permanent *PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("Expected *PermanentError, got %T: %v", err, err)
	}
}

func TestTwitterChannel_ImageUploadFallsBackToText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	var gotMedia bool
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 1024)
		n, _ := r.Body.Read(body)
		gotMedia = strings.Contains(string(body[:n]), "media_ids")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"42"}}`)
	})

	channel := newTestChannel(t, mux)
	image := &media.Image{Data: []byte("jpeg"), ContentType: "image/jpeg"}

	id, err := channel.Publish(context.Background(), testPost(), image)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if id != "42" {
		t.Errorf("External ID = %q, want 42", id)
	}
	if gotMedia {
		t.Error("Tweet payload carried media_ids after failed upload")
	}
}

func TestTwitterChannel_ImageAttached(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "OAuth ") {
			t.Errorf("Authorization header = %q, want OAuth prefix", auth)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
			t.Errorf("Upload Content-Type = %q, want multipart/form-data", ct)
		}
		file, _, err := r.FormFile("media")
		if err != nil {
			t.Errorf("Upload body missing media file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			file.Close()
			if string(data) != "jpeg" {
				t.Errorf("Uploaded media = %q, want jpeg", data)
			}
		}
		fmt.Fprint(w, `{"media_id_string":"m-99"}`)
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 1024)
		n, _ := r.Body.Read(body)
		if !strings.Contains(string(body[:n]), `"m-99"`) {
			t.Errorf("Tweet payload missing uploaded media id: %s", body[:n])
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"43"}}`)
	})

	channel := newTestChannel(t, mux)
	image := &media.Image{Data: []byte("jpeg"), ContentType: "image/jpeg"}

	if _, err := channel.Publish(context.Background(), testPost(), image); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}
