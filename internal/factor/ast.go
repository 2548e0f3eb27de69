package factor

// node is a parsed expression tree node.
type node interface {
	nodeKind()
}

// literal is a numeric constant.
type literal struct {
	value float64
}

// columnRef references a data column by name.
type columnRef struct {
	name string
	pos  int
}

// unary is a negation.
type unary struct {
	operand node
}

// binary applies an infix operator.
type binary struct {
	op    tokenKind
	left  node
	right node
}

// call invokes a builtin function.
type call struct {
	name string
	pos  int
	args []node
}

func (literal) nodeKind()   {}
func (columnRef) nodeKind() {}
func (unary) nodeKind()     {}
func (binary) nodeKind()    {}
func (call) nodeKind()      {}
