package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ytloop/internal/shared"
)

type failingTokenSource struct{ err error }

func (f failingTokenSource) Token() (*oauth2.Token, error) { return nil, f.err }

func newTestService(t *testing.T, handler http.HandlerFunc) *YouTubeService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	svc, err := NewYouTubeService(context.Background(), ts, YouTubeOptions{APIURL: server.URL + "/", MaxPages: 10})
	if err != nil {
		t.Fatalf("NewYouTubeService() error = %v", err)
	}
	return svc
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestYouTubeService(t *testing.T) {
	ctx := context.Background()

	t.Run("Collections", func(t *testing.T) {
		t.Run("follows page tokens", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/playlists") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
					t.Errorf("expected bearer token, got %q", got)
				}
				q := r.URL.Query()
				if q.Get("mine") != "true" || q.Get("maxResults") != "50" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}

				switch q.Get("pageToken") {
				case "":
					writeJSON(t, w, map[string]any{
						"nextPageToken": "page2",
						"items": []map[string]any{
							{"id": "PL1", "snippet": map[string]any{"title": "Focus"}, "contentDetails": map[string]any{"itemCount": 12}},
						},
					})
				case "page2":
					writeJSON(t, w, map[string]any{
						"items": []map[string]any{
							{"id": "PL2", "snippet": map[string]any{"title": "Chill", "thumbnails": map[string]any{"default": map[string]any{"url": "https://img/2.jpg"}}}},
						},
					})
				default:
					t.Errorf("unexpected page token %q", q.Get("pageToken"))
				}
			})

			collections, err := svc.Collections(ctx)
			if err != nil {
				t.Fatalf("Collections() error = %v", err)
			}
			if len(collections) != 2 {
				t.Fatalf("expected 2 collections, got %d", len(collections))
			}
			if collections[0].ID != "PL1" || collections[0].Title != "Focus" || collections[0].ItemCount != 12 {
				t.Errorf("unexpected first collection %+v", collections[0])
			}
			if collections[1].ThumbnailURL != "https://img/2.jpg" {
				t.Errorf("expected thumbnail url, got %q", collections[1].ThumbnailURL)
			}
		})

		t.Run("401 maps to ErrUnauthorized", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				writeJSON(t, w, map[string]any{"error": map[string]any{"code": 401, "message": "Invalid Credentials"}})
			})

			if _, err := svc.Collections(ctx); !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("403 maps to ErrForbidden", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				writeJSON(t, w, map[string]any{"error": map[string]any{"code": 403, "message": "quotaExceeded"}})
			})

			if _, err := svc.Collections(ctx); !errors.Is(err, shared.ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})

		t.Run("500 maps to ErrAPIRequest", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				writeJSON(t, w, map[string]any{"error": map[string]any{"code": 500, "message": "backend"}})
			})

			if _, err := svc.Collections(ctx); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("token errors keep their sentinel", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("request should not reach the server without a token")
			}))
			defer server.Close()

			for _, want := range []error{shared.ErrNotAuthenticated, shared.ErrTokenExpired} {
				svc, err := NewYouTubeService(ctx, failingTokenSource{err: want}, YouTubeOptions{APIURL: server.URL + "/"})
				if err != nil {
					t.Fatalf("NewYouTubeService() error = %v", err)
				}
				if _, err := svc.Collections(ctx); !errors.Is(err, want) {
					t.Errorf("expected %v, got %v", want, err)
				}
			}
		})
	})

	t.Run("Items", func(t *testing.T) {
		t.Run("maps entries and drops repeats", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/playlistItems") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("playlistId"); got != "PL1" {
					t.Errorf("expected playlistId PL1, got %s", got)
				}

				if r.URL.Query().Get("pageToken") == "" {
					writeJSON(t, w, map[string]any{
						"nextPageToken": "next",
						"items": []map[string]any{
							{
								"snippet": map[string]any{
									"title":       "Alpha",
									"publishedAt": "2024-05-01T10:00:00Z",
									"resourceId":  map[string]any{"videoId": "vid-a"},
								},
								"contentDetails": map[string]any{
									"videoId":          "vid-a",
									"videoPublishedAt": "2020-01-02T03:04:05Z",
								},
							},
						},
					})
					return
				}
				writeJSON(t, w, map[string]any{
					"items": []map[string]any{
						{"snippet": map[string]any{"title": "Beta", "resourceId": map[string]any{"videoId": "vid-b"}}},
						{"snippet": map[string]any{"title": "Alpha again"}, "contentDetails": map[string]any{"videoId": "vid-a"}},
					},
				})
			})

			items, err := svc.Items(ctx, "PL1")
			if err != nil {
				t.Fatalf("Items() error = %v", err)
			}
			if len(items) != 2 {
				t.Fatalf("expected 2 items, got %d", len(items))
			}

			a, b := items[0], items[1]
			if a.ID != "vid-a" || a.Title != "Alpha" || a.CollectionID != "PL1" {
				t.Errorf("unexpected first item %+v", a)
			}
			if !a.AddedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
				t.Errorf("unexpected addedAt %v", a.AddedAt)
			}
			if !a.PublishedAt.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)) {
				t.Errorf("unexpected publishedAt %v", a.PublishedAt)
			}
			if b.ID != "vid-b" {
				t.Errorf("expected resourceId fallback, got %q", b.ID)
			}
			if !b.PublishedAt.IsZero() {
				t.Errorf("expected zero publishedAt, got %v", b.PublishedAt)
			}
		})

		t.Run("requires a collection id", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("unexpected request")
			})
			if _, err := svc.Items(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("404 maps to ErrPlaylistNotFound", func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				writeJSON(t, w, map[string]any{"error": map[string]any{"code": 404, "message": "playlistNotFound"}})
			})
			if _, err := svc.Items(ctx, "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("Durations", func(t *testing.T) {
		var mu sync.Mutex
		var batchSizes []int

		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/videos") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var ids []string
			for _, v := range r.URL.Query()["id"] {
				ids = append(ids, strings.Split(v, ",")...)
			}

			mu.Lock()
			batchSizes = append(batchSizes, len(ids))
			mu.Unlock()

			var items []map[string]any
			for _, id := range ids {
				items = append(items, map[string]any{"id": id, "contentDetails": map[string]any{"duration": "PT1M"}})
			}
			writeJSON(t, w, map[string]any{"items": items})
		})

		ids := make([]string, 120)
		for i := range ids {
			ids[i] = fmt.Sprintf("vid%03d", i)
		}

		durations, err := svc.Durations(ctx, ids)
		if err != nil {
			t.Fatalf("Durations() error = %v", err)
		}
		if len(durations) != len(ids) {
			t.Fatalf("expected %d durations, got %d", len(ids), len(durations))
		}
		if got := TotalDuration(durations, ids); got != 120*time.Minute {
			t.Errorf("expected total 2h, got %v", got)
		}
		if got := shared.FormatClock(TotalDuration(durations, ids)); got != "2:00:00" {
			t.Errorf("expected 2:00:00, got %s", got)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(batchSizes) != 3 {
			t.Fatalf("expected 3 batch requests, got %d", len(batchSizes))
		}
		for _, n := range batchSizes {
			if n > 50 {
				t.Errorf("batch of %d exceeds 50", n)
			}
		}
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the token form-encoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
				t.Errorf("unexpected content type %s", got)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("ParseForm() error = %v", err)
			}
			if got := r.PostForm.Get("token"); got != "secret" {
				t.Errorf("expected token secret, got %s", got)
			}
		}))
		defer server.Close()

		if err := Revoke(ctx, server.Client(), server.URL, "secret"); err != nil {
			t.Errorf("Revoke() error = %v", err)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		if err := Revoke(ctx, server.Client(), server.URL, "secret"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("empty token is a no-op", func(t *testing.T) {
		if err := Revoke(ctx, nil, "http://127.0.0.1:0/unreachable", ""); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}
