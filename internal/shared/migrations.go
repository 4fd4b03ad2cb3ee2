package shared

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// migrationName matches "0001_create_launches_up.sql".
var migrationName = regexp.MustCompile(`^(\d+)_(\w+?)_(up|down)\.sql$`)

// Migration is one schema step with the scripts that apply and revert it.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrations returns the embedded migrations ordered by version. Every version needs both scripts.
func Migrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		m := migrationName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])

		content, err := migrationFiles.ReadFile(path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: m[2]}
			byVersion[version] = mig
		} else if mig.Name != m[2] {
			return nil, fmt.Errorf("migration %d has conflicting names %q and %q", version, mig.Name, m[2])
		}
		if m[3] == "up" {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Up == "" || mig.Down == "" {
			return nil, fmt.Errorf("incomplete migration %04d_%s", mig.Version, mig.Name)
		}
		migrations = append(migrations, *mig)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

// RunMigrations applies every migration not yet recorded in schema_migrations, each in its own transaction.
func RunMigrations(db *sql.DB) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		err := inTx(db, func(tx *sql.Tx) error {
			if err := execScript(tx, mig.Up); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// RollbackMigration reverts the newest applied migration.
func RollbackMigration(db *sql.DB) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	version, ok, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no migrations to rollback")
	}

	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	mig := migrations[i]

	err = inTx(db, func(tx *sql.Tx) error {
		if err := execScript(tx, mig.Down); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", mig.Version)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to rollback migration %04d_%s: %w", mig.Version, mig.Name, err)
	}
	return nil
}

// SchemaVersion returns the newest applied migration version; ok is false on an unmigrated database.
func SchemaVersion(db *sql.DB) (version int, ok bool, err error) {
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), v.Valid, nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// execScript runs the ";"-separated statements of script with "--" comments stripped.
func execScript(tx *sql.Tx, script string) error {
	for _, stmt := range strings.Split(stripComments(script), ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nStatement: %s", err, stmt)
		}
	}
	return nil
}

func stripComments(script string) string {
	var b strings.Builder
	for line := range strings.Lines(script) {
		if before, _, found := strings.Cut(line, "--"); found {
			line = before + "\n"
		}
		b.WriteString(line)
	}
	return b.String()
}
