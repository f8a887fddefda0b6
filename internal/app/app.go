package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shortreel/backend/internal/config"
	"github.com/shortreel/backend/internal/db"
	"github.com/shortreel/backend/internal/handlers"
	"github.com/shortreel/backend/internal/httpserver"
)

// Run bootstraps the ShortReel backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, os.Stdout, args[1:])
	case "seed":
		return runSeed(ctx, os.Stdout, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: lvl}))
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := deps.Database.Ping(ctx); err != nil {
		// The pool reconnects lazily; /healthz reports the outage.
		logger.Warn("database unreachable at startup", slog.Any("error", err))
	}

	srv := httpserver.New(cfg.AppPort, handlers.NewRouter(deps), logger)
	logger.Info("starting http server",
		slog.Int("port", cfg.AppPort),
		slog.String("media_provider", cfg.Media.Provider),
		slog.Bool("google_sign_in", cfg.Google.Enabled()),
	)
	return srv.Run(ctx)
}

const (
	migrationMaxRetries  = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// resolveDir anchors a relative directory at the working directory.
func resolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, dir), nil
}

// listMigrations returns the .sql files of dir in lexical order.
func listMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		migrations = append(migrations, entry.Name())
	}
	sort.Strings(migrations)
	return migrations, nil
}

func runMigrations(ctx context.Context, out io.Writer, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "up", "status":
	case "down":
		return errors.New("down migrations are not supported")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	migrationDir, err := resolveDir(cfg.MigrationDir)
	if err != nil {
		return err
	}
	migrations, err := listMigrations(migrationDir)
	if err != nil {
		return err
	}

	provider := db.NewProvider(cfg.DatabaseURL, db.WithMaxConns(cfg.DatabaseMaxConns))
	defer provider.Close()

	conn, err := provider.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}

	if command == "status" {
		for _, name := range migrations {
			mark := " "
			if _, ok := applied[name]; ok {
				mark = "x"
			}
			fmt.Fprintf(out, "[%s] %s\n", mark, name)
		}
		return nil
	}

	pending := 0
	for _, name := range migrations {
		if _, ok := applied[name]; ok {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationDir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := applyMigrationWithRetry(ctx, out, conn, name, string(contents)); err != nil {
			return err
		}
		fmt.Fprintf(out, "applied migration %s\n", name)
		pending++
	}
	if pending == 0 {
		fmt.Fprintln(out, "no migrations to apply")
	}
	return nil
}

func appliedMigrations(ctx context.Context, conn *pgxpool.Conn) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}

	applied := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

// seedFile maps a seed name such as "dev" to its file name.
func seedFile(name string) string {
	if strings.HasSuffix(name, ".sql") {
		return name
	}
	return name + "_seed.sql"
}

func runSeed(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seedDir, err := resolveDir(cfg.SeedDir)
	if err != nil {
		return err
	}
	seedName := seedFile(args[0])
	contents, err := os.ReadFile(filepath.Join(seedDir, seedName))
	if err != nil {
		return fmt.Errorf("read seed %s: %w", seedName, err)
	}

	provider := db.NewProvider(cfg.DatabaseURL, db.WithMaxConns(cfg.DatabaseMaxConns))
	defer provider.Close()

	conn, err := provider.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	fmt.Fprintf(out, "applied seed %s\n", seedName)
	return nil
}

// migrationBackoff returns the wait before the given retry attempt (1-based).
func migrationBackoff(attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * migrationBaseBackoff
	if backoff > migrationMaxBackoff {
		backoff = migrationMaxBackoff
	}
	return backoff
}

func applyMigrationWithRetry(ctx context.Context, out io.Writer, conn *pgxpool.Conn, name, contents string) error {
	var lastErr error
	for attempt := 0; attempt < migrationMaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(migrationBackoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		stage, err := applyMigration(ctx, conn, name, contents)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("%s migration %s: %w", stage, name, err)
		if !shouldRetryMigration(err) {
			return lastErr
		}
		fmt.Fprintf(out, "transient error (attempt %d/%d): %v\n", attempt+1, migrationMaxRetries, lastErr)
	}
	return fmt.Errorf("exceeded max retries (%d): %w", migrationMaxRetries, lastErr)
}

// applyMigration runs one migration in a serializable transaction and
// records it. The returned stage names the step that failed.
func applyMigration(ctx context.Context, conn *pgxpool.Conn, name, contents string) (string, error) {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return "begin", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, contents); err != nil {
		return "apply", err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
		return "record", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "commit", err
	}
	return "", nil
}

func shouldRetryMigration(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, pgx.ErrTxClosed) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgErrorCodes[pgErr.Code]
		return ok
	}
	return false
}
