// Package notiontable reads a Notion database into a flat, column-ordered table.
//
// Each database page becomes one row. Each property becomes one column, named
// after the property, holding a normalized value; the page id is added as the
// "id" column. Properties that cannot be normalized become nil and are reported
// to the configured diagnostic sink instead of failing the read.
package notiontable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"notiontable/internal/config"
	"notiontable/internal/logger"
	"notiontable/internal/models"
	"notiontable/internal/normalizer"
	"notiontable/internal/notion"
	"notiontable/internal/table"
)

// Aliases expose the internal types this package's API is built on.
type (
	Config         = config.Config
	Credentials    = config.Credentials
	Table          = table.Table
	Page           = models.Page
	Logger         = logger.Logger
	Diagnostic     = normalizer.Diagnostic
	DiagnosticSink = normalizer.DiagnosticSink
)

// AllPages fetches every result page.
const AllPages = config.AllPages

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.LoadConfig(path)
}

// LoadCredentials reads NOTION_SECRET from the environment or a .env file.
func LoadCredentials() (*Credentials, error) {
	return config.LoadCredentials()
}

// ErrMissingCredentials is returned when no client is injected and no credentials are given.
var ErrMissingCredentials = errors.New("credentials are required to query the API")

// Option customizes a read.
type Option func(*options)

type options struct {
	logger      *logger.Logger
	diagnostics normalizer.DiagnosticSink
	client      notion.Client
}

// WithLogger sets the logger used for progress and diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithDiagnostics adds a sink that receives every property normalization problem.
func WithDiagnostics(sink normalizer.DiagnosticSink) Option {
	return func(o *options) { o.diagnostics = sink }
}

// WithClient replaces the HTTP client, for example with a fake in tests.
func WithClient(client notion.Client) Option {
	return func(o *options) { o.client = client }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logger.Discard()
	}

	return o
}

func (o *options) diagnosticSink() normalizer.DiagnosticSink {
	logged := normalizer.LogDiagnostics(o.logger)
	if o.diagnostics == nil {
		return logged
	}

	return normalizer.Tee(logged, o.diagnostics)
}

// ReadDatabase fetches up to cfg.Notion.NumPages result pages of the database
// cfg.Notion.DatabaseID (config.AllPages for all of them) and converts them into a table.
// A fetch failure aborts the read; no partial table is returned.
func ReadDatabase(ctx context.Context, cfg *config.Config, creds *config.Credentials, opts ...Option) (*table.Table, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	databaseID, err := config.NormalizeDatabaseID(cfg.Notion.DatabaseID)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	client := o.client
	if client == nil {
		if creds == nil {
			return nil, ErrMissingCredentials
		}

		httpClient, err := notion.NewHTTPClient(&cfg.Notion, creds.Secret, o.logger)
		if err != nil {
			return nil, err
		}

		client = httpClient
	}

	fetcher := notion.NewFetcher(client, cfg.Notion.PageDelay(), o.logger)

	pages, err := fetcher.FetchPages(ctx, databaseID, cfg.Notion.NumPages)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch database %s: %w", databaseID, err)
	}

	return ParsePages(pages, opts...), nil
}

// ParsePages converts already-fetched pages into a table, in order.
func ParsePages(pages []*models.Page, opts ...Option) *table.Table {
	o := buildOptions(opts)

	return normalizer.NewProcessor(o.diagnosticSink()).Process(pages)
}

// DecodePages reads pages saved from the API: either a query response object
// with a "results" array or a bare JSON array of pages.
func DecodePages(r io.Reader) ([]*models.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var pages []*models.Page
		if err := json.Unmarshal(trimmed, &pages); err != nil {
			return nil, fmt.Errorf("failed to decode pages: %w", err)
		}

		return pages, nil
	}

	var resp notion.QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}

	return resp.Results, nil
}
