package service

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Table is a fully materialized query result. Rows[i][j] is the value of
// Columns[j] in row i.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// TableSource lists and reads the tables of one database.
type TableSource interface {
	ListTables(ctx context.Context) ([]string, error)
	FetchTable(ctx context.Context, name string) (*Table, error)
}

type DatabaseService struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	driverName   string
	listQuery    string
	identQuote   string
	describeName string
}

var dialects = map[string]dialect{
	DriverMySQL: {
		driverName:   "mysql",
		listQuery:    "SHOW TABLES",
		identQuote:   "`",
		describeName: "MySQL",
	},
	DriverPostgres: {
		driverName: "pgx",
		listQuery: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		identQuote:   `"`,
		describeName: "PostgreSQL",
	},
	DriverSQLite: {
		driverName: "sqlite",
		listQuery: `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
			ORDER BY name`,
		identQuote:   `"`,
		describeName: "SQLite",
	},
}

// NewDatabaseService opens a handle for cfg. No connection is made until the
// first query, so an unreachable server surfaces as a ListTables error.
func NewDatabaseService(cfg DatabaseConfig) (*DatabaseService, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.describeName, err)
	}
	// Tables are exported one at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &DatabaseService{db: db, dialect: d}, nil
}

func (s *DatabaseService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func buildDSN(cfg DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(cfg.Host, cfg.Port)
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(cfg.Host, cfg.Port),
			Path:   "/" + cfg.Database,
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		return u.String(), nil
	case DriverSQLite:
		if cfg.Database == "" {
			return "", fmt.Errorf("sqlite requires DB_DATABASE to name the database file")
		}
		return cfg.Database, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func hostPort(host, port string) string {
	if port == "" {
		return host
	}
	return net.JoinHostPort(host, port)
}

// ListTables returns table names in catalog order.
func (s *DatabaseService) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tables: %w", s.dialect.describeName, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var tables []string
	for rows.Next() {
		// Only the first column holds the name.
		dest := make([]any, len(cols))
		var name string
		dest[0] = &name
		for i := 1; i < len(dest); i++ {
			dest[i] = new(sql.RawBytes)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s tables: %w", s.dialect.describeName, err)
	}
	return tables, nil
}

// FetchTable reads every row of name into memory.
func (s *DatabaseService) FetchTable(ctx context.Context, name string) (*Table, error) {
	query := "SELECT * FROM " + s.dialect.quoteIdent(name)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %q: %w", name, err)
	}

	t := &Table{Name: name, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %q: %w", name, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %q: %w", name, err)
	}
	return t, nil
}

func (d dialect) quoteIdent(name string) string {
	q := d.identQuote
	return q + strings.ReplaceAll(name, q, q+q) + q
}
