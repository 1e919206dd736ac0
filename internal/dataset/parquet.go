package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/ddl"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

// ParquetAdapter introspects tabular reference files with an in-process
// DuckDB: key/value metadata become attributes, columns become variables
// and the compressed size of all column chunks is the byte size.
type ParquetAdapter struct {
	store  domain.ObjectStore
	cfg    config.StorageConfig
	logger *slog.Logger

	mu     sync.Mutex
	db     *sql.DB
	loaded map[string]bool // extensions and secrets set up per scheme
}

// NewParquetAdapter creates a ParquetAdapter. The DuckDB connection is
// opened on first use.
func NewParquetAdapter(store domain.ObjectStore, cfg config.StorageConfig, logger *slog.Logger) *ParquetAdapter {
	return &ParquetAdapter{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "parquet"),
		loaded: map[string]bool{},
	}
}

// Close releases the DuckDB connection.
func (a *ParquetAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Open reads the metadata of the entry's first location.
func (a *ParquetAdapter) Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error) {
	if e.Kind != domain.BackendTabularReference {
		return nil, fmt.Errorf("%w: parquet adapter cannot open %s entries", domain.ErrUnsupportedBackend, e.Kind)
	}
	loc := e.Locations[0]
	if domain.IsReference(loc) {
		return nil, fmt.Errorf("%w: tabular entry with reference location %s", domain.ErrUnsupportedBackend, loc)
	}

	db, err := a.conn(ctx, storage.Scheme(loc))
	if err != nil {
		return nil, err
	}
	path := loc
	if storage.Scheme(loc) == "file" {
		path = loc[len("file://"):]
	}
	src, err := ddl.ParquetSource(path, a.isDir(ctx, loc))
	if err != nil {
		return nil, err
	}

	ds := &domain.Dataset{Attrs: map[string]any{}}
	if err := a.keyValues(ctx, db, src, ds); err != nil {
		return nil, fmt.Errorf("read parquet metadata %s: %w", loc, err)
	}
	if err := a.columns(ctx, db, src, ds); err != nil {
		return nil, fmt.Errorf("read parquet schema %s: %w", loc, err)
	}
	if err := db.QueryRowContext(ctx, ddl.ParquetSizeSQL(src)).Scan(&ds.SizeBytes); err != nil {
		return nil, fmt.Errorf("read parquet size %s: %w", loc, err)
	}
	return ds, nil
}

func (a *ParquetAdapter) keyValues(ctx context.Context, db *sql.DB, src string, ds *domain.Dataset) error {
	rows, err := db.QueryContext(ctx, ddl.ParquetKeyValueSQL(src))
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		// The serialized arrow schema is binary and duplicates the columns.
		if string(key) == "ARROW:schema" {
			continue
		}
		ds.Attrs[string(key)] = string(value)
	}
	return rows.Err()
}

func (a *ParquetAdapter) columns(ctx context.Context, db *sql.DB, src string, ds *domain.Dataset) error {
	rows, err := db.QueryContext(ctx, ddl.ParquetColumnsSQL(src))
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		ds.Variables = append(ds.Variables, fmt.Sprint(vals[0]))
	}
	return rows.Err()
}

// isDir reports whether loc is a directory of parquet parts. Reference
// indices carry a .zmetadata document next to their parts.
func (a *ParquetAdapter) isDir(ctx context.Context, loc string) bool {
	if strings.HasSuffix(loc, "/") {
		return true
	}
	ok, err := a.store.Exists(ctx, storage.Join(loc, ".zmetadata"))
	if err != nil {
		a.logger.Debug("reference index lookup failed", "location", loc, "error", err)
	}
	return ok
}

// conn returns the DuckDB connection, loading the extensions and secrets
// the scheme needs on first use.
func (a *ParquetAdapter) conn(ctx context.Context, scheme string) (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		db, err := sql.Open("duckdb", "")
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		a.db = db
	}
	if a.loaded[scheme] {
		return a.db, nil
	}
	stmts, err := a.setupStatements(scheme)
	if err != nil {
		return nil, err
	}
	for _, stmt := range stmts {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("duckdb setup for %s: %w", scheme, err)
		}
	}
	a.loaded[scheme] = true
	return a.db, nil
}

func (a *ParquetAdapter) setupStatements(scheme string) ([]string, error) {
	var stmts []string
	switch scheme {
	case "", "file":
	case "http", "https":
		stmts = append(stmts, "INSTALL httpfs; LOAD httpfs;")
	case "s3", "s3a":
		stmts = append(stmts, "INSTALL httpfs; LOAD httpfs;")
		if a.cfg.HasS3Credentials() {
			s, err := ddl.CreateS3Secret("forge_s3", a.cfg.S3KeyID, a.cfg.S3Secret, a.cfg.S3Endpoint, a.cfg.S3Region)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
	case "gs", "gcs":
		stmts = append(stmts, "INSTALL httpfs; LOAD httpfs;")
		if a.cfg.GCSKeyFile != "" {
			s, err := ddl.CreateGCSSecret("forge_gcs", a.cfg.GCSKeyFile)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
	case "az", "abfs", "abfss":
		stmts = append(stmts, "INSTALL azure; LOAD azure;")
		if a.cfg.HasAzureKey() {
			s, err := ddl.CreateAzureSecret("forge_az", a.cfg.AzureAccountName, a.cfg.AzureAccountKey)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
	default:
		return nil, fmt.Errorf("%w: parquet over %s", domain.ErrUnsupportedBackend, scheme)
	}
	return stmts, nil
}
