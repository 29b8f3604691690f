package tables

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// Storage treats the tables of one database as rotation candidates. Backup
// copies of tables carry a timestamp in their name; deleting one drops it.
type Storage struct {
	name    string
	dialect string
	db      *sql.DB
}

// Open connects to dsn with the driver for dialect.
func Open(name, dialect, dsn string) (*Storage, error) {
	switch dialect {
	case DialectSQLite, DialectMySQL:
	default:
		return nil, fmt.Errorf("tables: unsupported dialect %q", dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	return NewWithDB(name, dialect, db), nil
}

func NewWithDB(name, dialect string, db *sql.DB) *Storage {
	return &Storage{name: name, dialect: dialect, db: db}
}

func (s *Storage) Name() string { return s.name }

func (s *Storage) Close() error { return s.db.Close() }

func (s *Storage) listQuery() string {
	if s.dialect == DialectMySQL {
		return "SHOW TABLES"
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// List returns the tables whose name starts with prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]rotate.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.listQuery())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []rotate.Item
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if strings.HasPrefix(name, prefix) {
			out = append(out, rotate.Plain(name))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return out, nil
}

// TolerateDeleteFailures reports true. Table drops are best effort.
func (s *Storage) TolerateDeleteFailures() bool { return true }

func (s *Storage) Delete(ctx context.Context, item rotate.Item) error {
	stmt := "DROP TABLE IF EXISTS " + s.quote(item.Handle())
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop table %s: %w", item.Handle(), err)
	}
	return nil
}

func (s *Storage) quote(ident string) string {
	if s.dialect == DialectMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
