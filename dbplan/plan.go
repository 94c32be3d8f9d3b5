package dbplan

import (
	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

// Plan is a node of an executable query plan. The node kinds are fixed:
// *TablePlan, *SelectPlan, *ProjectPlan and *JoinPlan.
type Plan interface {
	Schema() *dbrecord.Schema
	// RecordsOutput is the estimated number of output rows. It is 0 when the
	// plan was built without statistics.
	RecordsOutput() int
	DistinctValues(field dbquery.FieldRef) int
	Children() []Plan
	plan()
}

func (*TablePlan) plan()   {}
func (*SelectPlan) plan()  {}
func (*ProjectPlan) plan() {}
func (*JoinPlan) plan()    {}
