package dbengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teru01/filedb-go/dbplan"
	"github.com/teru01/filedb-go/dbquery"
)

// Engine turns plans into pull-based scans.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "engine"))}
}

// Execute opens a scan over the rows of plan. Nothing is read until the
// first call to Next.
func (e *Engine) Execute(ctx context.Context, plan dbplan.Plan) (dbquery.Scan, error) {
	switch p := plan.(type) {
	case *dbplan.TablePlan:
		return p.Store().Scan(), nil
	case *dbplan.SelectPlan:
		child, err := e.Execute(ctx, p.Children()[0])
		if err != nil {
			return nil, err
		}
		return dbquery.NewSelectScan(child, p.Predicate()), nil
	case *dbplan.ProjectPlan:
		child, err := e.Execute(ctx, p.Children()[0])
		if err != nil {
			return nil, err
		}
		return dbquery.NewProjectScan(child, p.Fields()), nil
	case *dbplan.JoinPlan:
		return e.executeJoin(ctx, p)
	}
	return nil, fmt.Errorf("unknown plan node %T", plan)
}

func (e *Engine) executeJoin(ctx context.Context, p *dbplan.JoinPlan) (dbquery.Scan, error) {
	left, err := e.Execute(ctx, p.Left())
	if err != nil {
		return nil, fmt.Errorf("open left: %w", err)
	}
	switch p.Strategy() {
	case dbplan.HashJoin:
		right, err := e.Execute(ctx, p.Right())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open right: %w", err), left.Close())
		}
		e.logger.Debug("hash join", slog.Bool("build_left", p.BuildLeft()), slog.Any("left_keys", p.LeftKeys()), slog.Any("right_keys", p.RightKeys()))
		return dbquery.NewHashJoinScan(left, right, p.LeftKeys(), p.RightKeys(), p.BuildLeft()), nil
	case dbplan.NestedLoopJoin:
		openRight := func(ctx context.Context) (dbquery.Scan, error) {
			return e.Execute(ctx, p.Right())
		}
		return dbquery.NewNestedLoopJoinScan(left, openRight, p.Condition()), nil
	}
	return nil, errors.Join(fmt.Errorf("unknown join strategy %s", p.Strategy()), left.Close())
}
