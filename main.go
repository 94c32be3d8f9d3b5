package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/chzyer/readline"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbexecutor"
)

var cli struct {
	BaseDir             string   `name:"base-dir" env:"BASE_DIR" type:"path" default:".dbdata" help:"Directory holding the table files."`
	HashJoinThreshold   int      `env:"HASH_JOIN_THRESHOLD" default:"10000" help:"Hash a join input estimated below this many rows."`
	SyncWrites          bool     `env:"SYNC_WRITES" default:"true" negatable:"" help:"Fsync every insert."`
	StatRefreshInterval int      `env:"STAT_REFRESH_INTERVAL" default:"100" help:"Recompute statistics after this many lookups."`
	DisableStatistics   bool     `help:"Plan without statistics (listed join order, nested-loop joins)."`
	DisablePushdown     bool     `help:"Apply all filters above the join tree."`
	LogLevel            string   `env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level."`
	ReplMode            bool     `env:"REPL_MODE" default:"true" negatable:"" help:"Read statements interactively."`
	Execute             []string `short:"e" sep:"none" help:"Execute a statement and print its result. Repeatable."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("filedb"),
		kong.Description("A file-backed SQL database with hash and nested-loop joins."),
	)
	logger := newLogger(cli.LogLevel)
	slog.SetDefault(logger)
	slog.Info("starting filedb...")

	ctx := context.Background()
	db, err := dbexecutor.Open(ctx, dbexecutor.Config{
		Dir:                 cli.BaseDir,
		HashJoinThreshold:   cli.HashJoinThreshold,
		SyncWrites:          cli.SyncWrites,
		StatRefreshInterval: cli.StatRefreshInterval,
		DisableStatistics:   cli.DisableStatistics,
		DisablePushdown:     cli.DisablePushdown,
		Logger:              logger,
	})
	if err != nil {
		slog.Error("failed to open filedb", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close filedb", "error", err)
		}
	}()

	slog.Info("filedb started", "dir", cli.BaseDir, "hashJoinThreshold", cli.HashJoinThreshold, "syncWrites", cli.SyncWrites)

	for _, sql := range cli.Execute {
		run(ctx, db, logger, sql)
	}
	if !cli.ReplMode || len(cli.Execute) > 0 {
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "> ",
		HistoryFile: filepath.Join(cli.BaseDir, ".filedb_history"),
	})
	if err != nil {
		slog.Error("failed to create readline", "error", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				break
			}
			slog.Error("reading input", "error", err)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == `\q` || strings.EqualFold(line, "exit") {
			break
		}
		run(ctx, db, logger, line)
	}
}

func run(ctx context.Context, db *dbexecutor.DB, logger *slog.Logger, sql string) {
	result, err := db.Execute(ctx, sql)
	if err != nil {
		dberr.HandleErrorLog(logger, err)
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		return
	}
	render(os.Stdout, result)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
