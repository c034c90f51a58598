package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir is the path of the bundled migrations inside Embedded.
const EmbeddedDir = "migrations"

// Embedded carries the migrations compiled into the binary.
//
//go:embed migrations/*.sql
var Embedded embed.FS

// Runner applies goose migrations from one source against Postgres.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// Source returns the migration files either bundled in the binary or read
// from dir.
func Source(dir string, embedded bool) (fs.FS, error) {
	if embedded {
		return fs.Sub(Embedded, EmbeddedDir)
	}
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	return os.DirFS(dir), nil
}

func NewRunner(db *sql.DB, source fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Exec runs one of up, down, status or version. version is only read by the
// version command, which migrates up or down to the given YYYYMMDDHHMMSS.
func (r *Runner) Exec(ctx context.Context, command, version string) error {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		r.logResults(ctx, results)
		return wrapGoose(command, err)
	case "down":
		result, err := r.provider.Down(ctx)
		if result != nil {
			r.logResults(ctx, []*goose.MigrationResult{result})
		}
		return wrapGoose(command, err)
	case "status":
		return r.status(ctx)
	case "version":
		return r.migrateTo(ctx, version)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	return r.Exec(ctx, "up", "")
}

func (r *Runner) migrateTo(ctx context.Context, version string) error {
	if version == "" {
		return errors.New("missing target version")
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.logResults(ctx, results)
	return wrapGoose(fmt.Sprintf("migrate %d -> %d", current, target), err)
}

func (r *Runner) status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return wrapGoose("status", err)
	}
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}

func (r *Runner) logResults(ctx context.Context, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		})
		if res.Error != nil {
			r.logg.Error(logCtx, "migration failed", res.Error)
			continue
		}
		r.logg.Info(logCtx, "migration applied")
	}
}

func wrapGoose(op string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
