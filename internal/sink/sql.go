package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"notiontable/internal/config"
	"notiontable/internal/formatter"
	"notiontable/internal/logger"
	"notiontable/internal/table"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrInvalidIdentifier is returned for an empty table or column name.
var ErrInvalidIdentifier = errors.New("invalid sql identifier")

// dialect captures the differences between the supported SQL databases.
type dialect struct {
	driver    string
	quoteChar string
	numbered  bool // $1, $2 placeholders instead of ?
}

var dialects = map[string]dialect{
	config.FormatSQLite:   {driver: "sqlite", quoteChar: `"`},
	config.FormatPostgres: {driver: "postgres", quoteChar: `"`, numbered: true},
	config.FormatMySQL:    {driver: "mysql", quoteChar: "`"},
}

func (d dialect) quote(ident string) string {
	return d.quoteChar + strings.ReplaceAll(ident, d.quoteChar, d.quoteChar+d.quoteChar) + d.quoteChar
}

func (d dialect) placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}

	return "?"
}

// SQLSink writes tables into a relational database, one TEXT column per table column.
type SQLSink struct {
	db      *sql.DB
	logger  *logger.Logger
	dialect dialect
	table   string
	mode    string
}

// OpenSQL connects to the database for format ("sqlite", "postgres" or "mysql").
// For sqlite the dsn is a file path.
func OpenSQL(ctx context.Context, format, dsn, tableName, mode string, log *logger.Logger) (*SQLSink, error) {
	d, ok := dialects[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if strings.TrimSpace(tableName) == "" {
		return nil, fmt.Errorf("%w: empty table name", ErrInvalidIdentifier)
	}

	if log == nil {
		log = logger.Discard()
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}

	return &SQLSink{db: db, logger: log, dialect: d, table: tableName, mode: mode}, nil
}

// Write stores t in one transaction. Replace mode recreates the table with
// exactly t's columns; append mode adds any columns the table lacks.
func (s *SQLSink) Write(ctx context.Context, t *table.Table) (written int, err error) {
	columns := t.Columns()
	if len(columns) == 0 {
		return 0, nil
	}

	for _, col := range columns {
		if col == "" {
			return 0, fmt.Errorf("%w: empty column name", ErrInvalidIdentifier)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.mode == config.ModeAppend {
		err = s.ensureColumns(ctx, tx, columns)
	} else {
		err = s.resetTable(ctx, tx, columns)
	}

	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, s.insertSQL(columns))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))

	for i, values := range t.Rows() {
		for c, v := range values {
			args[c] = cellArg(v)
		}

		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}

		written++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("rows written", "table", s.table, "rows", written, "mode", s.mode)

	return written, nil
}

// Close closes the database handle.
func (s *SQLSink) Close() error {
	return s.db.Close()
}

// resetTable drops and recreates the target table.
func (s *SQLSink) resetTable(ctx context.Context, tx *sql.Tx, columns []string) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.quote(s.table)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.createSQL(columns, false)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return nil
}

// ensureColumns creates the table if needed and adds missing columns.
func (s *SQLSink) ensureColumns(ctx context.Context, tx *sql.Tx, columns []string) error {
	if _, err := tx.ExecContext(ctx, s.createSQL(columns, true)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	existing, err := s.existingColumns(ctx, tx)
	if err != nil {
		return err
	}

	for _, col := range columns {
		if existing[col] {
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT",
			s.dialect.quote(s.table), s.dialect.quote(col))

		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("add column %q: %w", col, err)
		}

		s.logger.Info("column added", "table", s.table, "column", col)
	}

	return nil
}

func (s *SQLSink) existingColumns(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT * FROM "+s.dialect.quote(s.table)+" WHERE 1=0")
	if err != nil {
		return nil, fmt.Errorf("inspect table: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c] = true
	}

	return out, rows.Err()
}

func (s *SQLSink) createSQL(columns []string, ifNotExists bool) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = s.dialect.quote(col) + " TEXT"
	}

	clause := "CREATE TABLE "
	if ifNotExists {
		clause += "IF NOT EXISTS "
	}

	return clause + s.dialect.quote(s.table) + " (" + strings.Join(defs, ", ") + ")"
}

func (s *SQLSink) insertSQL(columns []string) string {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))

	for i, col := range columns {
		names[i] = s.dialect.quote(col)
		marks[i] = s.dialect.placeholder(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.quote(s.table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// cellArg maps an absent value to NULL and everything else to its text form.
func cellArg(v any) any {
	if v == nil {
		return nil
	}

	return formatter.FormatCell(v)
}
