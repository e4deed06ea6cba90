package querygen

import "strings"

// An Op represents the kind of a compiled operation. Ops are bit flags so
// rules can match several kinds at once.
type Op uint

// Operation kinds.
const (
	OpSelect Op = 1 << iota
	OpInsert
	OpUpdate
	OpDelete
	OpTruncate
	OpDDL
	OpTx

	// OpMutation matches every statement writing rows.
	OpMutation = OpInsert | OpUpdate | OpDelete | OpTruncate
)

var opNames = []string{
	"OpSelect",
	"OpInsert",
	"OpUpdate",
	"OpDelete",
	"OpTruncate",
	"OpDDL",
	"OpTx",
}

// Is reports whether o matches the given op.
func (o Op) Is(op Op) bool { return o&op != 0 }

// String implements the fmt.Stringer interface.
func (o Op) String() string {
	var names []string
	for i, name := range opNames {
		if o&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "Op(0)"
	}
	return strings.Join(names, "|")
}
