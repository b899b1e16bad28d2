package formula

// node is the formula AST. Kept as a single struct with a Kind tag rather
// than a Go interface hierarchy, mirroring CellValue's tagged-union style
// elsewhere in this codebase (grid.CellValue) for the same reason: cheap to
// construct, cheap to walk, no dynamic dispatch needed for a handful of
// variants.
type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeString
	nodeRef   // single cell or range reference, text carries the raw A1 text
	nodeUnary
	nodeBinary
	nodeCall
	nodeArray // {1,2,3} literal array
)

type node struct {
	kind nodeKind
	num  float64
	str  string
	op   tokenType
	args []*node // Unary: args[0]. Binary: args[0], args[1]. Call: arguments. Array: elements.
	name string   // Call: function name
}
