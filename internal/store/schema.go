package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
)

// Journal schema steps live in migrations/NNNNNN_name.sql. The applied
// step is tracked in sqlite's user_version header field, so an empty
// database reports 0 and needs every step.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

type schemaStep struct {
	version int
	name    string
	sql     string
}

func (s schemaStep) String() string {
	return fmt.Sprintf("%06d_%s", s.version, s.name)
}

// migrateJournal brings the journal at dbPath up to the newest schema step
// found in fsys. A journal written by a newer build is refused rather than
// read with a schema this build does not know.
func migrateJournal(ctx context.Context, db *sql.DB, fsys fs.FS, dbPath string) error {
	steps, err := readSchemaSteps(fsys)
	if err != nil {
		return fmt.Errorf("read journal schema: %w", err)
	}
	latest := 0
	if len(steps) > 0 {
		latest = steps[len(steps)-1].version
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("journal %s has schema %d, newer than supported %d", dbPath, current, latest)
	}

	var applied []string
	for _, step := range steps {
		if step.version <= current {
			continue
		}
		if err := applySchemaStep(ctx, db, step); err != nil {
			return fmt.Errorf("journal schema step %s: %w", step, err)
		}
		applied = append(applied, step.String())
	}

	if len(applied) > 0 {
		slog.Debug("journal schema updated", "journal", dbPath, "from", current, "to", latest, "steps", applied)
	}
	return nil
}

func readSchemaSteps(fsys fs.FS) ([]schemaStep, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]schemaStep, 0, len(files))
	for _, file := range files {
		version, name, err := parseStepFilename(path.Base(file))
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		steps = append(steps, schemaStep{version: version, name: name, sql: string(body)})
	}

	slices.SortFunc(steps, func(a, b schemaStep) int { return a.version - b.version })
	for i := 1; i < len(steps); i++ {
		if steps[i].version == steps[i-1].version {
			return nil, fmt.Errorf("schema steps %s and %s share version %d", steps[i-1], steps[i], steps[i].version)
		}
	}
	return steps, nil
}

// parseStepFilename splits "000001_init.sql" into (1, "init").
func parseStepFilename(filename string) (int, string, error) {
	versionPart, name, ok := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("schema file %q: want NNNNNN_name.sql", filename)
	}
	version, err := strconv.Atoi(versionPart)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("schema file %q: version must be a positive number", filename)
	}
	return version, name, nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read journal schema version: %w", err)
	}
	return version, nil
}

// applySchemaStep runs one step and records it in the same transaction.
func applySchemaStep(ctx context.Context, db *sql.DB, step schemaStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, step.sql); err != nil {
		return err
	}
	// PRAGMA does not take bound parameters; version is a parsed int.
	if _, err := tx.ExecContext(ctx, "PRAGMA user_version = "+strconv.Itoa(step.version)); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}
