package dbplan

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbmetadata"
	"github.com/teru01/filedb-go/dbparse"
	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

const (
	DefaultHashJoinThreshold = 10000
)

type Options struct {
	// HashJoinThreshold is the row count below which the smaller join input
	// is hashed in memory.
	HashJoinThreshold int
	DisableStatistics bool
	// DisablePushdown applies every condition above the whole join tree.
	DisablePushdown bool
	Logger          *slog.Logger
}

type QueryPlanner struct {
	catalog *dbmetadata.Catalog
	opts    Options
	logger  *slog.Logger
}

func NewQueryPlanner(catalog *dbmetadata.Catalog, opts Options) *QueryPlanner {
	if opts.HashJoinThreshold <= 0 {
		opts.HashJoinThreshold = DefaultHashJoinThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &QueryPlanner{
		catalog: catalog,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "planner")),
	}
}

type relation struct {
	ref   dbparse.TableRef
	store *dbrecord.TableStore
	// schema is qualified with ref.Qualifier()
	schema *dbrecord.Schema
	stats  *dbmetadata.StatInfo
}

// conjunct is one AND operand of the WHERE and ON conditions, bound to the
// schema of all relations.
type conjunct struct {
	predicate dbquery.Predicate
	// relations are the sorted indices of the relations it references
	relations []int
	// keys are set when it is column = column across two relations, aligned
	// with relations
	keys   []dbquery.FieldRef
	pushed bool
}

// CreatePlan builds the plan of a SELECT.
// step1: resolve tables and bind every column reference
// step2: push single-table conditions down onto their table
// step3: build a left-deep join tree, choosing order and strategy
// step4: project the requested columns
func (q *QueryPlanner) CreatePlan(ctx context.Context, queryData *dbparse.QueryData) (Plan, error) {
	relations, err := q.resolveTables(ctx, queryData.Tables())
	if err != nil {
		return nil, err
	}
	combined := dbrecord.NewSchema()
	for _, r := range relations {
		combined.AddAll(r.schema)
	}

	projection, err := resolveProjection(queryData.Projections(), relations, combined)
	if err != nil {
		return nil, err
	}
	conjuncts, err := collectConjuncts(queryData, relations, combined)
	if err != nil {
		return nil, err
	}

	if !q.opts.DisableStatistics {
		for _, r := range relations {
			r.stats, err = q.catalog.GetStatInfo(ctx, r.store)
			if err != nil {
				return nil, fmt.Errorf("get stat info for %q: %w", r.ref.Name, err)
			}
		}
	}

	leaves := make([]Plan, len(relations))
	for i, r := range relations {
		var leaf Plan = NewTablePlan(r.store, r.ref.Qualifier(), r.stats)
		if !q.opts.DisablePushdown {
			var pushed []dbquery.Predicate
			for _, c := range conjuncts {
				if len(c.relations) > 1 || c.relation() != i {
					continue
				}
				pushed = append(pushed, c.predicate)
				c.pushed = true
			}
			if len(pushed) > 0 {
				leaf, err = NewSelectPlan(leaf, dbquery.Conjoin(pushed...))
				if err != nil {
					return nil, err
				}
				q.logger.Debug("pushed down filter", slog.String("table", r.ref.String()), slog.String("predicate", leaf.(*SelectPlan).Predicate().String()))
			}
		}
		leaves[i] = leaf
	}

	order := make([]int, len(relations))
	for i := range order {
		order[i] = i
	}
	tree, cost, err := q.buildJoinTree(leaves, order, conjuncts)
	if err != nil {
		return nil, err
	}
	if len(relations) > 2 && q.statsEnabled() {
		alt := heuristicOrder(leaves, conjuncts)
		if !slices.Equal(alt, order) {
			altTree, altCost, err := q.buildJoinTree(leaves, alt, conjuncts)
			if err != nil {
				return nil, err
			}
			q.logger.Debug("compared join orders", slog.Any("listed", order), slog.Int("listed_cost", cost), slog.Any("heuristic", alt), slog.Int("heuristic_cost", altCost))
			if altCost < cost {
				tree = altTree
			}
		}
	}

	if q.opts.DisablePushdown && len(conjuncts) > 0 {
		all := make([]dbquery.Predicate, len(conjuncts))
		for i, c := range conjuncts {
			all[i] = c.predicate
		}
		tree, err = NewSelectPlan(tree, dbquery.Conjoin(all...))
		if err != nil {
			return nil, err
		}
	}
	return NewProjectPlan(tree, projection)
}

func (q *QueryPlanner) statsEnabled() bool {
	return !q.opts.DisableStatistics
}

func (q *QueryPlanner) resolveTables(ctx context.Context, tables []dbparse.TableRef) ([]*relation, error) {
	seen := make(map[string]struct{}, len(tables))
	relations := make([]*relation, 0, len(tables))
	for _, ref := range tables {
		qualifier := ref.Qualifier()
		if _, ok := seen[qualifier]; ok {
			return nil, dberr.New(dberr.CodeSyntaxError, fmt.Sprintf("table name %q specified more than once", qualifier), nil)
		}
		seen[qualifier] = struct{}{}
		store, err := q.catalog.GetTable(ctx, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve table: %w", err)
		}
		relations = append(relations, &relation{ref: ref, store: store, schema: store.Schema().Qualified(qualifier)})
	}
	return relations, nil
}

// resolveProjection expands * and q.* and qualifies every projected column.
func resolveProjection(projections []dbparse.Projection, relations []*relation, combined *dbrecord.Schema) ([]dbquery.FieldRef, error) {
	var fields []dbquery.FieldRef
	addAll := func(schema *dbrecord.Schema) {
		for _, c := range schema.Columns() {
			fields = append(fields, dbquery.FieldRef{Qualifier: c.Qualifier, Name: c.Name})
		}
	}
	for _, p := range projections {
		switch {
		case p.Star && p.Qualifier == "":
			addAll(combined)
		case p.Star:
			i := slices.IndexFunc(relations, func(r *relation) bool { return r.ref.Qualifier() == p.Qualifier })
			if i < 0 {
				return nil, dberr.New(dberr.CodeUnresolvedColumn, fmt.Sprintf("unknown table %q in %s", p.Qualifier, p), nil)
			}
			addAll(relations[i].schema)
		default:
			e, err := dbquery.NewExpressionFromField(p.Qualifier, p.Field).Bind(combined)
			if err != nil {
				return nil, fmt.Errorf("select list: %w", err)
			}
			fields = append(fields, e.AsField())
		}
	}
	return fields, nil
}

func collectConjuncts(queryData *dbparse.QueryData, relations []*relation, combined *dbrecord.Schema) ([]*conjunct, error) {
	index := make(map[string]int, len(relations))
	for i, r := range relations {
		index[r.ref.Qualifier()] = i
	}
	var conjuncts []*conjunct
	add := func(p dbquery.Predicate, on bool) error {
		bound, err := p.Bind(combined)
		if err != nil {
			return err
		}
		if err := dbquery.CheckTypes(bound, combined); err != nil {
			return err
		}
		for _, pred := range dbquery.Conjuncts(bound) {
			c := newConjunct(pred, index)
			if on && len(c.relations) > 1 && c.keys == nil {
				return dberr.New(dberr.CodeUnsupportedJoinCondition, fmt.Sprintf("join condition %s must be an equality between columns of two tables", pred), nil)
			}
			conjuncts = append(conjuncts, c)
		}
		return nil
	}
	for _, j := range queryData.JoinConditions() {
		if err := add(j.Condition, true); err != nil {
			return nil, fmt.Errorf("join condition for %s: %w", queryData.Tables()[j.Index], err)
		}
	}
	if queryData.Predicate() != nil {
		if err := add(queryData.Predicate(), false); err != nil {
			return nil, fmt.Errorf("where clause: %w", err)
		}
	}
	return conjuncts, nil
}

func newConjunct(p dbquery.Predicate, index map[string]int) *conjunct {
	c := &conjunct{predicate: p}
	for _, f := range p.Fields() {
		i := index[f.Qualifier]
		if !slices.Contains(c.relations, i) {
			c.relations = append(c.relations, i)
		}
	}
	slices.Sort(c.relations)
	term, ok := p.(*dbquery.Term)
	if !ok || len(c.relations) != 2 || term.Op() != dbquery.OpEqual || !term.LHS().IsFieldName() || !term.RHS().IsFieldName() {
		return c
	}
	l, r := term.LHS().AsField(), term.RHS().AsField()
	if index[l.Qualifier] != c.relations[0] {
		l, r = r, l
	}
	c.keys = []dbquery.FieldRef{l, r}
	return c
}

// relation is the relation a single-relation conjunct applies to. Conjuncts
// without columns are evaluated on the first relation.
func (c *conjunct) relation() int {
	if len(c.relations) == 0 {
		return 0
	}
	return c.relations[0]
}

// buildJoinTree joins leaves left-deep in order. cost is the sum of the
// estimated output of every join.
func (q *QueryPlanner) buildJoinTree(leaves []Plan, order []int, conjuncts []*conjunct) (Plan, int, error) {
	used := make([]bool, len(conjuncts))
	for i, c := range conjuncts {
		used[i] = c.pushed || q.opts.DisablePushdown
	}
	joined := map[int]bool{order[0]: true}
	tree := leaves[order[0]]
	cost := 0
	for _, next := range order[1:] {
		var keys []JoinKey
		for i, c := range conjuncts {
			if used[i] || c.keys == nil {
				continue
			}
			a, b := c.relations[0], c.relations[1]
			switch {
			case joined[a] && b == next:
				keys = append(keys, JoinKey{Left: c.keys[0], Right: c.keys[1]})
			case joined[b] && a == next:
				keys = append(keys, JoinKey{Left: c.keys[1], Right: c.keys[0]})
			default:
				continue
			}
			used[i] = true
		}

		right := leaves[next]
		strategy, buildLeft := q.chooseStrategy(tree, right, keys)
		join, err := NewJoinPlan(tree, right, keys, strategy, buildLeft)
		if err != nil {
			return nil, 0, err
		}
		q.logger.Debug("planned join", slog.String("strategy", strategy.String()), slog.Int("keys", len(keys)), slog.Bool("build_left", buildLeft), slog.Int("left_rows", tree.RecordsOutput()), slog.Int("right_rows", right.RecordsOutput()))
		tree = join
		joined[next] = true

		var deferred []dbquery.Predicate
		for i, c := range conjuncts {
			if used[i] || !containsAll(joined, c.relations) {
				continue
			}
			deferred = append(deferred, c.predicate)
			used[i] = true
		}
		if len(deferred) > 0 {
			tree, err = NewSelectPlan(tree, dbquery.Conjoin(deferred...))
			if err != nil {
				return nil, 0, err
			}
		}
		cost += tree.RecordsOutput()
	}
	return tree, cost, nil
}

func containsAll(set map[int]bool, relations []int) bool {
	for _, r := range relations {
		if !set[r] {
			return false
		}
	}
	return true
}

// chooseStrategy hashes the smaller input when there is an equality key and
// that input is estimated below the threshold.
func (q *QueryPlanner) chooseStrategy(left, right Plan, keys []JoinKey) (JoinStrategy, bool) {
	if len(keys) == 0 || !q.statsEnabled() {
		return NestedLoopJoin, false
	}
	l, r := left.RecordsOutput(), right.RecordsOutput()
	if min(l, r) >= q.opts.HashJoinThreshold {
		return NestedLoopJoin, false
	}
	return HashJoin, l < r
}

// heuristicOrder starts with the largest relation and then repeatedly adds
// the smallest remaining relation connected to the joined ones by an
// equality, or the smallest overall if none is connected.
func heuristicOrder(leaves []Plan, conjuncts []*conjunct) []int {
	remaining := make([]int, len(leaves))
	for i := range remaining {
		remaining[i] = i
	}
	first := slices.MaxFunc(remaining, func(a, b int) int {
		// 同数なら先に書かれたテーブル
		if c := leaves[a].RecordsOutput() - leaves[b].RecordsOutput(); c != 0 {
			return c
		}
		return b - a
	})
	order := []int{first}
	joined := map[int]bool{first: true}
	remaining = slices.DeleteFunc(remaining, func(i int) bool { return i == first })

	for len(remaining) > 0 {
		best := -1
		bestConnected := false
		for _, cand := range remaining {
			connected := isConnected(cand, joined, conjuncts)
			switch {
			case best < 0,
				connected && !bestConnected,
				connected == bestConnected && leaves[cand].RecordsOutput() < leaves[best].RecordsOutput():
				best, bestConnected = cand, connected
			}
		}
		order = append(order, best)
		joined[best] = true
		remaining = slices.DeleteFunc(remaining, func(i int) bool { return i == best })
	}
	return order
}

func isConnected(cand int, joined map[int]bool, conjuncts []*conjunct) bool {
	for _, c := range conjuncts {
		if c.keys == nil {
			continue
		}
		a, b := c.relations[0], c.relations[1]
		if (a == cand && joined[b]) || (b == cand && joined[a]) {
			return true
		}
	}
	return false
}
