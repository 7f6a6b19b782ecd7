package notion

import (
	"context"
	"fmt"
	"time"

	"notiontable/internal/config"
	"notiontable/internal/logger"
	"notiontable/internal/models"

	"golang.org/x/time/rate"
)

// Fetcher walks every page of a database query, pacing requests.
type Fetcher struct {
	client  Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewFetcher creates a fetcher that issues at most one request per pageDelay.
// A non-positive pageDelay disables pacing.
func NewFetcher(client Client, pageDelay time.Duration, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Discard()
	}

	limit := rate.Inf
	if pageDelay > 0 {
		limit = rate.Every(pageDelay)
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
	}
}

// FetchPages downloads database pages in API order. numPages caps the number of
// query requests; config.AllPages fetches until the API reports no more results.
// Any request failure aborts the whole read.
func (f *Fetcher) FetchPages(ctx context.Context, databaseID string, numPages int) ([]*models.Page, error) {
	if databaseID == "" {
		return nil, config.ErrMissingDatabaseID
	}

	if numPages != config.AllPages && numPages < 1 {
		return nil, fmt.Errorf("%w: %d", config.ErrInvalidNumPages, numPages)
	}

	var (
		pages  []*models.Page
		cursor string
	)

	startTime := time.Now()

	for request := 1; numPages == config.AllPages || request <= numPages; request++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for request slot: %w", err)
		}

		f.logger.Info("downloading page", "page", request, "start_cursor", cursor)

		resp, err := f.client.QueryDatabase(ctx, databaseID, cursor)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", request, err)
		}

		for _, page := range resp.Results {
			if page != nil {
				pages = append(pages, page)
			}
		}

		f.logger.Debug("page downloaded", "page", request, "results", len(resp.Results), "has_more", resp.HasMore)

		if !resp.HasMore {
			break
		}

		if resp.NextCursor == nil || *resp.NextCursor == "" {
			f.logger.Warn("has_more without next_cursor; stopping", "page", request)
			break
		}

		cursor = *resp.NextCursor
	}

	f.logger.Info("database fetched",
		"database_id", databaseID,
		"records", len(pages),
		"duration", time.Since(startTime),
	)

	return pages, nil
}
