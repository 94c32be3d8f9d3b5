package dbplan

import (
	"fmt"
	"strings"
)

// Explain renders plan as an indented tree, one node per line. Row estimates
// are shown when the plan was built with statistics.
func Explain(plan Plan) string {
	var b strings.Builder
	withStats := hasStats(plan)
	explain(&b, plan, 0, withStats)
	return strings.TrimSuffix(b.String(), "\n")
}

func explain(b *strings.Builder, plan Plan, depth int, withStats bool) {
	b.WriteString(strings.Repeat("  ", depth))
	switch p := plan.(type) {
	case *TablePlan:
		if p.Qualifier() != p.TableName() {
			fmt.Fprintf(b, "Scan %s AS %s", p.TableName(), p.Qualifier())
		} else {
			fmt.Fprintf(b, "Scan %s", p.TableName())
		}
	case *SelectPlan:
		fmt.Fprintf(b, "Filter %s", p.Predicate())
	case *ProjectPlan:
		cols := p.Schema().Columns()
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Qualifier + "." + c.Name
		}
		fmt.Fprintf(b, "Project %s", strings.Join(names, ", "))
	case *JoinPlan:
		b.WriteString(p.Strategy().String())
		if p.Condition() != nil {
			fmt.Fprintf(b, " ON %s", p.Condition())
		}
		if p.Strategy() == HashJoin {
			if p.BuildLeft() {
				b.WriteString(" build=left")
			} else {
				b.WriteString(" build=right")
			}
		}
	default:
		fmt.Fprintf(b, "%T", plan)
	}
	if withStats {
		fmt.Fprintf(b, " (rows=%d)", plan.RecordsOutput())
	}
	b.WriteString("\n")
	for _, child := range plan.Children() {
		explain(b, child, depth+1, withStats)
	}
}

func hasStats(plan Plan) bool {
	if t, ok := plan.(*TablePlan); ok {
		return t.HasStats()
	}
	for _, child := range plan.Children() {
		if !hasStats(child) {
			return false
		}
	}
	return true
}
