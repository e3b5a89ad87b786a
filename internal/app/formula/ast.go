package formula

// Expr is a node of the restricted arithmetic expression language
// (spec.md §4.1). The only concrete variants are the ones listed below —
// there is no attribute access, subscript, comparison, boolean op, lambda,
// or comprehension node because the parser never constructs one.
type Expr interface{ isExpr() }

type NumLit struct{ Value float64 }

func (NumLit) isExpr() {}

type Ident struct{ Name string }

func (Ident) isExpr() {}

type Unary struct {
	Op byte // '+' or '-'
	X  Expr
}

func (Unary) isExpr() {}

type Binary struct {
	Op   byte // '+' '-' '*' '/' '^' (the last represents **)
	L, R Expr
}

func (Binary) isExpr() {}

type Call struct {
	Func string
	Args []Expr
}

func (Call) isExpr() {}

// Assignment is the only statement kind: "name = expr".
type Assignment struct {
	Name string
	Expr Expr
	Line int
}

// whitelistedFuncs is the fixed dispatch table of permitted function names.
var whitelistedFuncs = map[string]struct {
	minArgs, maxArgs int
}{
	"min":   {2, -1},
	"max":   {2, -1},
	"abs":   {1, 1},
	"round": {1, 2},
	"log":   {1, 1},
	"exp":   {1, 1},
	"sqrt":  {1, 1},
}
