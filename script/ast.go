package script

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Node is implemented by every AST node.
type Node interface {
	Position() Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

type (
	// IntLit is an integer literal.
	IntLit struct {
		Pos   Position
		Value int64
	}

	// FloatLit is a float literal.
	FloatLit struct {
		Pos   Position
		Value float64
	}

	// StringLit is a string literal. Each evaluation yields a new string.
	StringLit struct {
		Pos   Position
		Value string
	}

	// SymbolLit is a symbol literal.
	SymbolLit struct {
		Pos  Position
		Name string
	}

	// NilLit, TrueLit and FalseLit are the singleton literals.
	NilLit   struct{ Pos Position }
	TrueLit  struct{ Pos Position }
	FalseLit struct{ Pos Position }

	// Variable reads a local variable.
	Variable struct {
		Pos  Position
		Name string
	}

	// Constant names a class.
	Constant struct {
		Pos  Position
		Name string
	}

	// ArrayLit is [a, b, ...].
	ArrayLit struct {
		Pos      Position
		Elements []Expr
	}

	// HashLit is {k => v, label: v}. Keys and Values are parallel.
	HashLit struct {
		Pos    Position
		Keys   []Expr
		Values []Expr
	}

	// Send is a message send. A nil Receiver is a bare call such as p(x).
	Send struct {
		Pos      Position
		Receiver Expr
		Name     string
		Args     []Expr
		Block    *Block
	}

	// Assign binds a local variable.
	Assign struct {
		Pos   Position
		Name  string
		Value Expr
	}

	// Block is a { |params| body } or do |params| body end literal.
	Block struct {
		Pos    Position
		Params []string
		Body   []Expr
	}
)

func (e *IntLit) Position() Position    { return e.Pos }
func (e *FloatLit) Position() Position  { return e.Pos }
func (e *StringLit) Position() Position { return e.Pos }
func (e *SymbolLit) Position() Position { return e.Pos }
func (e *NilLit) Position() Position    { return e.Pos }
func (e *TrueLit) Position() Position   { return e.Pos }
func (e *FalseLit) Position() Position  { return e.Pos }
func (e *Variable) Position() Position  { return e.Pos }
func (e *Constant) Position() Position  { return e.Pos }
func (e *ArrayLit) Position() Position  { return e.Pos }
func (e *HashLit) Position() Position   { return e.Pos }
func (e *Send) Position() Position      { return e.Pos }
func (e *Assign) Position() Position    { return e.Pos }
func (e *Block) Position() Position     { return e.Pos }

func (*IntLit) exprNode()    {}
func (*FloatLit) exprNode()  {}
func (*StringLit) exprNode() {}
func (*SymbolLit) exprNode() {}
func (*NilLit) exprNode()    {}
func (*TrueLit) exprNode()   {}
func (*FalseLit) exprNode()  {}
func (*Variable) exprNode()  {}
func (*Constant) exprNode()  {}
func (*ArrayLit) exprNode()  {}
func (*HashLit) exprNode()   {}
func (*Send) exprNode()      {}
func (*Assign) exprNode()    {}
