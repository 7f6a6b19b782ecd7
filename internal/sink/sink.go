// Package sink writes exported tables to files and databases.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"notiontable/internal/config"
	"notiontable/internal/logger"
	"notiontable/internal/table"
)

// ErrUnknownFormat is returned for an output format no sink handles.
var ErrUnknownFormat = errors.New("unknown output format")

// Sink writes a table somewhere and reports how many rows were written.
type Sink interface {
	Write(ctx context.Context, t *table.Table) (int, error)
	Close() error
}

// Options selects and configures a sink.
type Options struct {
	// Stdout receives file formats when Output.Path is empty.
	Stdout     io.Writer
	Logger     *logger.Logger
	DatabaseID string
	Output     config.OutputConfig
}

// New opens the sink described by opts.Output.
func New(ctx context.Context, opts Options) (Sink, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	out := opts.Output

	switch out.Format {
	case config.FormatMarkdown, config.FormatCSV, config.FormatJSONL:
		w, err := openFile(out.Path, opts.Stdout)
		if err != nil {
			return nil, err
		}

		switch out.Format {
		case config.FormatMarkdown:
			return NewMarkdownSink(w, opts.DatabaseID, out.MaxCellWidth, log), nil
		case config.FormatCSV:
			return NewCSVSink(w), nil
		default:
			return NewJSONLinesSink(w), nil
		}
	case config.FormatSQLite, config.FormatPostgres, config.FormatMySQL:
		if out.Path == "" {
			return nil, config.ErrMissingOutputPath
		}

		return OpenSQL(ctx, out.Format, out.Path, out.Table, out.Mode, log)
	case config.FormatMongo:
		if out.Path == "" {
			return nil, config.ErrMissingOutputPath
		}

		return OpenMongo(ctx, out.Path, out.Database, out.Table, out.Mode, log)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, out.Format)
}

// nopCloser wraps a writer the sink does not own.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func openFile(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		if stdout == nil {
			stdout = os.Stdout
		}

		return nopCloser{stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return f, nil
}
