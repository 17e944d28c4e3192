package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

type Store struct {
	db      *sql.DB
	dialect string
}

type GuildSettings struct {
	GuildID     string
	PremiumTier string
	LogChannel  string
	UpdatedAt   time.Time
}

// Premium reports whether the guild is on any paid tier.
func (g GuildSettings) Premium() bool {
	tier := strings.ToLower(strings.TrimSpace(g.PremiumTier))
	return tier != "" && tier != "free"
}

// New opens an SQLite store at dbPath.
func New(dbPath string) (*Store, error) {
	return Open(DialectSQLite, dbPath)
}

// Open opens a store for the given dialect. Postgres DSNs are handed to the
// pgx database/sql driver.
func Open(dialect, dsn string) (*Store, error) {
	driver := "sqlite"
	switch dialect {
	case DialectSQLite:
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// A second connection to ":memory:" would see an empty database.
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	dir := path.Join("migrations", s.dialect)
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join(dir, file))
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.Exec(stmt); err != nil {
				if isIgnorableMigrationError(err) {
					continue
				}
				return fmt.Errorf("migration %s failed: %w", file, err)
			}
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT premium_tier, log_channel, updated_at
		FROM guild_settings WHERE guild_id = ?`), guildID)

	result := GuildSettings{GuildID: guildID, PremiumTier: "free"}
	var updated int64
	err := row.Scan(&result.PremiumTier, &result.LogChannel, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.UpdatedAt = time.UnixMilli(updated)
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	if settings.PremiumTier == "" {
		settings.PremiumTier = "free"
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO guild_settings (guild_id, premium_tier, log_channel, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			premium_tier = excluded.premium_tier,
			log_channel = excluded.log_channel,
			updated_at = excluded.updated_at
	`), settings.GuildID, settings.PremiumTier, settings.LogChannel, time.Now().UnixMilli())
	return err
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
