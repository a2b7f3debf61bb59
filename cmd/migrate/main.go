package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fashun/backend/internal/infrastructure/config"
	"github.com/fashun/backend/internal/infrastructure/logger"
	"github.com/fashun/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `Usage: migrate [-log-level level] <command> [argument]

Commands:
  up               apply every pending migration (inventory and loyalty tables)
  down             roll back every migration
  step <n>         apply n migrations, negative n rolls back
  version          print the applied version
  force <version>  mark a version as applied after a failed run

Connection settings come from FASHUN_DATABASE_* variables or config.toml.`

// errUsage marks a command line the tool cannot run
var errUsage = errors.New("invalid usage")

// migrator is the part of *migration.Migrator the commands drive
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

type command struct {
	args int
	run  func(m migrator, arg int, log *zap.Logger) error
}

var commands = map[string]command{
	"up":   {run: func(m migrator, _ int, _ *zap.Logger) error { return m.Up() }},
	"down": {run: func(m migrator, _ int, _ *zap.Logger) error { return m.Down() }},
	"step": {args: 1, run: func(m migrator, n int, _ *zap.Logger) error {
		if n == 0 {
			return fmt.Errorf("%w: step count must not be zero", errUsage)
		}
		return m.Steps(n)
	}},
	"force": {args: 1, run: func(m migrator, v int, _ *zap.Logger) error { return m.Force(v) }},
	"version": {run: func(m migrator, _ int, log *zap.Logger) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}},
}

// parse resolves the command and its integer argument before any connection
// is opened
func parse(args []string) (command, int, error) {
	if len(args) == 0 {
		return command{}, 0, fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return command{}, 0, fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if len(args)-1 != cmd.args {
		return command{}, 0, fmt.Errorf("%w: %s takes %d argument(s)", errUsage, args[0], cmd.args)
	}
	if cmd.args == 0 {
		return cmd, 0, nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return command{}, 0, fmt.Errorf("%w: %q is not an integer", errUsage, args[1])
	}
	return cmd, n, nil
}

func main() {
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cmd, arg, err := parse(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, usage)
		os.Exit(2)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = *logLevel
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := migrate(cmd, arg, log); err != nil {
		log.Error("Migration failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
	log.Info("Migration finished", zap.String("command", flag.Arg(0)))
}

func migrate(cmd command, arg int, log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database %s: %w", cfg.Database.DBName, err)
	}

	m, err := migration.New(db, log)
	if err != nil {
		return err
	}
	defer m.Close()

	return cmd.run(m, arg, log)
}
