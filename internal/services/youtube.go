// YouTube Data API v3 [Source] implementation
//
// Requests go through google.golang.org/api/youtube/v3 with an oauth2 bearer transport.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

const (
	pageSize           = 50
	maxBatchSize       = 50
	maxBatchesInFlight = 4
)

// YouTubeOptions configures a [YouTubeService].
type YouTubeOptions struct {
	// APIURL overrides the API endpoint. Empty uses Google's.
	APIURL string

	// MaxPages bounds each paginated listing. Zero uses [DefaultMaxPages].
	MaxPages int

	// BatchSize is the number of ids per duration lookup, at most 50.
	BatchSize int

	// RequestsPerSec throttles duration lookups. Zero or less disables throttling.
	RequestsPerSec float64

	// Transport is the base round tripper under the bearer transport. Nil uses [http.DefaultTransport].
	Transport http.RoundTripper

	Logger *log.Logger
}

// YouTubeService implements [Source] against the YouTube Data API.
type YouTubeService struct {
	svc       *youtube.Service
	maxPages  int
	batchSize int
	limiter   *rate.Limiter
	logger    *log.Logger
}

// NewYouTubeService creates a service whose requests carry tokens from ts.
func NewYouTubeService(ctx context.Context, ts oauth2.TokenSource, opts YouTubeOptions) (*YouTubeService, error) {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base}}

	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.APIURL))
	}

	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	batch := opts.BatchSize
	if batch <= 0 || batch > maxBatchSize {
		batch = maxBatchSize
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &YouTubeService{
		svc:       svc,
		maxPages:  opts.MaxPages,
		batchSize: batch,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}, nil
}

// Collections returns every playlist the user owns.
//
// Calls GET /youtube/v3/playlists?part=snippet,contentDetails&mine=true&maxResults=50.
func (y *YouTubeService) Collections(ctx context.Context) ([]models.Collection, error) {
	collections, err := Paginate(ctx, y.maxPages, func(ctx context.Context, cursor string) (Page[models.Collection], error) {
		call := y.svc.Playlists.List([]string{"snippet", "contentDetails"}).
			Mine(true).
			MaxResults(pageSize).
			Context(ctx)
		if cursor != "" {
			call = call.PageToken(cursor)
		}

		resp, err := call.Do()
		if err != nil {
			return Page[models.Collection]{}, classify("list playlists", err)
		}

		page := Page[models.Collection]{Next: resp.NextPageToken}
		for _, p := range resp.Items {
			page.Items = append(page.Items, collectionFromAPI(p))
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}

	y.logger.Debug("fetched collections", "count", len(collections))
	return collections, nil
}

// Items returns every entry of the playlist, in playlist order, without repeats.
//
// Calls GET /youtube/v3/playlistItems?part=snippet,contentDetails&maxResults=50&playlistId=ID.
func (y *YouTubeService) Items(ctx context.Context, collectionID string) ([]models.Item, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id", shared.ErrMissingArgument)
	}

	items, err := Paginate(ctx, y.maxPages, func(ctx context.Context, cursor string) (Page[models.Item], error) {
		call := y.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(collectionID).
			MaxResults(pageSize).
			Context(ctx)
		if cursor != "" {
			call = call.PageToken(cursor)
		}

		resp, err := call.Do()
		if err != nil {
			return Page[models.Item]{}, classify("list playlist items", err)
		}

		page := Page[models.Item]{Next: resp.NextPageToken}
		for _, pi := range resp.Items {
			page.Items = append(page.Items, itemFromAPI(collectionID, pi))
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}

	deduped := Dedupe(items)
	if dropped := len(items) - len(deduped); dropped > 0 {
		y.logger.Debug("dropped repeated playlist entries", "collection", collectionID, "dropped", dropped)
	}
	return deduped, nil
}

// Durations looks up video durations in batches.
//
// Calls GET /youtube/v3/videos?part=contentDetails&id=ID1,ID2,... once per batch.
// Durations the API reports in an unparseable form are logged and counted as zero.
func (y *YouTubeService) Durations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	batches := chunk(ids, y.batchSize)
	results := make([]map[string]time.Duration, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchesInFlight)

	for i, batch := range batches {
		g.Go(func() error {
			if err := y.limiter.Wait(gctx); err != nil {
				return err
			}

			resp, err := y.svc.Videos.List([]string{"contentDetails"}).Id(batch...).Context(gctx).Do()
			if err != nil {
				return classify("list video durations", err)
			}

			found := make(map[string]time.Duration, len(resp.Items))
			for _, v := range resp.Items {
				if v.ContentDetails == nil {
					continue
				}
				d, err := ParseISODuration(v.ContentDetails.Duration)
				if err != nil {
					y.logger.Warn("unparseable duration", "video", v.Id, "error", err)
				}
				found[v.Id] = d
			}
			results[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	durations := make(map[string]time.Duration, len(ids))
	for _, found := range results {
		for id, d := range found {
			durations[id] = d
		}
	}
	return durations, nil
}

func collectionFromAPI(p *youtube.Playlist) models.Collection {
	c := models.Collection{ID: p.Id}
	if p.Snippet != nil {
		c.Title = p.Snippet.Title
		c.ThumbnailURL = thumbnailURL(p.Snippet.Thumbnails)
	}
	if p.ContentDetails != nil {
		c.ItemCount = p.ContentDetails.ItemCount
	}
	return c
}

func itemFromAPI(collectionID string, pi *youtube.PlaylistItem) models.Item {
	item := models.Item{CollectionID: collectionID}
	if pi.ContentDetails != nil {
		item.ID = pi.ContentDetails.VideoId
		item.PublishedAt = parseTime(pi.ContentDetails.VideoPublishedAt)
	}
	if pi.Snippet != nil {
		if item.ID == "" && pi.Snippet.ResourceId != nil {
			item.ID = pi.Snippet.ResourceId.VideoId
		}
		item.Title = pi.Snippet.Title
		item.ThumbnailURL = thumbnailURL(pi.Snippet.Thumbnails)
		item.AddedAt = parseTime(pi.Snippet.PublishedAt)
	}
	return item
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.Default, t.High} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// parseTime returns the zero time for empty or malformed timestamps.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// classify maps API failures onto the shared error sentinels.
func classify(op string, err error) error {
	for _, sentinel := range []error{shared.ErrNotAuthenticated, shared.ErrTokenExpired} {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%s: %w", op, sentinel)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %s", shared.ErrUnauthorized, op, gerr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s: %s", shared.ErrForbidden, op, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %s", shared.ErrPlaylistNotFound, op, gerr.Message)
		default:
			return fmt.Errorf("%w: %s: status %d: %s", shared.ErrAPIRequest, op, gerr.Code, gerr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
