package service

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

type TableStatus string

const (
	StatusExported     TableStatus = "exported"
	StatusFetchFailed  TableStatus = "fetch_failed"
	StatusWriteFailed  TableStatus = "write_failed"
	StatusUploadFailed TableStatus = "upload_failed"
)

type TableResult struct {
	Table  string
	Status TableStatus
	Rows   int
	File   string
	Key    string
	Err    error
}

type Summary struct {
	RunID   string
	Results []TableResult
}

// Failed counts tables that did not reach the object store.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status != StatusExported {
			n++
		}
	}
	return n
}

// Err joins every per-table error, or returns nil when all tables exported.
func (s Summary) Err() error {
	var errs *multierror.Error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = multierror.Append(errs, r.Err)
		}
	}
	return errs.ErrorOrNil()
}

type RunOptions struct {
	// Tables limits the run to these names. Empty means every table.
	Tables []string
}

// Exporter moves every table from a TableSource into an ObjectStore, one
// table at a time.
type Exporter struct {
	source    TableSource
	store     ObjectStore
	dir       string
	keyPrefix string
}

func NewExporter(source TableSource, store ObjectStore, dir, keyPrefix string) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{source: source, store: store, dir: dir, keyPrefix: keyPrefix}
}

// Run exports the tables and reports per-table outcomes. Individual table
// failures never stop the loop.
func (e *Exporter) Run(ctx context.Context, opts RunOptions) Summary {
	summary := Summary{RunID: uuid.NewString()}
	log := slog.Default().With("run_id", summary.RunID)

	tables, err := e.source.ListTables(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list tables", "error", err)
		tables = nil
	}
	tables = filterTables(ctx, log, tables, opts.Tables)

	if len(tables) == 0 {
		log.InfoContext(ctx, "No tables found in the database")
	}

	for _, table := range tables {
		summary.Results = append(summary.Results, e.exportTable(ctx, log, table))
	}

	log.InfoContext(ctx, "Operation completed successfully",
		"tables", len(summary.Results),
		"failed", summary.Failed(),
	)
	return summary
}

func (e *Exporter) exportTable(ctx context.Context, log *slog.Logger, table string) TableResult {
	fileName := table + ".csv"
	res := TableResult{
		Table: table,
		File:  filepath.Join(e.dir, fileName),
		Key:   e.keyPrefix + fileName,
	}
	log = log.With("table", table)

	log.InfoContext(ctx, "Fetching data from table")
	data, err := e.source.FetchTable(ctx, table)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch data from table", "error", err)
		res.Status, res.Err = StatusFetchFailed, err
		return res
	}
	res.Rows = len(data.Rows)

	log.InfoContext(ctx, "Writing data to CSV", "file", res.File, "rows", res.Rows)
	if err := WriteCSV(data, res.File); err != nil {
		log.ErrorContext(ctx, "Failed to write CSV file", "file", res.File, "error", err)
		RemoveLocalFile(ctx, res.File)
		res.Status, res.Err = StatusWriteFailed, err
		return res
	}

	log.InfoContext(ctx, "Uploading CSV file", "file", res.File, "bucket", e.store.Bucket(), "key", res.Key)
	if err := e.store.Upload(ctx, res.Key, res.File); err != nil {
		log.WarnContext(ctx, "Failed to upload CSV file, keeping local copy", "file", res.File, "error", err)
		res.Status, res.Err = StatusUploadFailed, err
		return res
	}

	log.InfoContext(ctx, "Deleting CSV file from local filesystem", "file", res.File)
	RemoveLocalFile(ctx, res.File)
	res.Status = StatusExported
	return res
}

func filterTables(ctx context.Context, log *slog.Logger, tables, wanted []string) []string {
	if len(wanted) == 0 {
		return tables
	}
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}
	want := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		want[w] = true
		if !present[w] {
			log.WarnContext(ctx, "Requested table not found in the database", "table", w)
		}
	}
	var out []string
	for _, t := range tables {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}
