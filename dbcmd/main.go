package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/teru01/filedb-go/dbexecutor"
)

var cli struct {
	BaseDir string `name:"base-dir" env:"BASE_DIR" type:"path" default:".dbdata" help:"Directory holding the table files."`

	Load  loadCmd  `cmd:"" help:"Create the students and classes tables and fill them with random rows."`
	Bench benchCmd `cmd:"" help:"Time a join query with each join strategy."`
}

type loadCmd struct {
	TotalRecords int  `env:"TOTAL_RECORDS" default:"100000" help:"Number of students to insert."`
	BatchSize    int  `default:"1000" help:"Rows per INSERT statement."`
	SyncWrites   bool `env:"SYNC_WRITES" default:"false" negatable:"" help:"Fsync every insert."`
}

type benchCmd struct {
	Query string `default:"SELECT s.name, c.teacher FROM students s JOIN classes c ON s.class = c.name WHERE s.id < 2000" help:"Query to run."`
}

var (
	classes = []string{"A", "B", "C", "D", "E", "F"}
	names   = []string{"sheep", "goat", "cow", "cat", "dog", "bird", "fish", "frog", "lion", "bear"}
)

func (l *loadCmd) Run(ctx context.Context, baseDir string) error {
	db, err := dbexecutor.Open(ctx, dbexecutor.Config{Dir: baseDir, SyncWrites: l.SyncWrites})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	for _, sql := range []string{
		`CREATE TABLE students (id INT, name VARCHAR(10), class VARCHAR(1))`,
		`CREATE TABLE classes (name VARCHAR(1), teacher VARCHAR(10))`,
	} {
		if _, err := db.Execute(ctx, sql); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	slog.Info("created tables students and classes")

	var b strings.Builder
	b.WriteString("INSERT INTO classes (name, teacher) VALUES ")
	for i, class := range classes {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "('%s', '%s')", class, names[rand.IntN(len(names))])
	}
	if _, err := db.Execute(ctx, b.String()); err != nil {
		return fmt.Errorf("insert classes: %w", err)
	}

	for i := 0; i < l.TotalRecords; i += l.BatchSize {
		end := min(i+l.BatchSize, l.TotalRecords)
		b.Reset()
		b.WriteString("INSERT INTO students (id, name, class) VALUES ")
		for j := i; j < end; j++ {
			if j > i {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "(%d, '%s', '%s')", j+1, names[rand.IntN(len(names))], classes[rand.IntN(len(classes))])
		}
		if _, err := db.Execute(ctx, b.String()); err != nil {
			return fmt.Errorf("insert students %d-%d: %w", i+1, end, err)
		}
		if end%10000 == 0 {
			slog.Info("inserted records", "count", end)
		}
	}
	slog.Info("done", "total", l.TotalRecords)
	return nil
}

func (c *benchCmd) Run(ctx context.Context, baseDir string) error {
	configs := []struct {
		name string
		cfg  dbexecutor.Config
	}{
		{"hash join", dbexecutor.Config{Dir: baseDir}},
		{"nested loop join", dbexecutor.Config{Dir: baseDir, DisableStatistics: true}},
		{"without pushdown", dbexecutor.Config{Dir: baseDir, DisablePushdown: true}},
	}
	for _, cc := range configs {
		if err := runBench(ctx, cc.name, cc.cfg, c.Query); err != nil {
			return err
		}
	}
	return nil
}

func runBench(ctx context.Context, name string, cfg dbexecutor.Config, sql string) error {
	db, err := dbexecutor.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	plan, err := db.Execute(ctx, "EXPLAIN "+sql)
	if err != nil {
		return fmt.Errorf("explain: %w", err)
	}
	for _, row := range plan.Rows {
		slog.Debug("plan", "bench", name, "node", row[0].String())
	}

	start := time.Now()
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	n := 0
	for {
		ok, err := rows.Next(ctx)
		if err != nil {
			rows.Close()
			return fmt.Errorf("read rows: %w", err)
		}
		if !ok {
			break
		}
		n++
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close rows: %w", err)
	}
	slog.Info("bench", "name", name, "rows", n, "elapsed", time.Since(start))
	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("filedb-cmd"),
		kong.Description("Bulk loader and join benchmark for filedb."),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	if err := kctx.Run(cli.BaseDir); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
