package ast

import (
	"bytes"
	"strconv"
	"strings"

	"garnet/internal/token"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
	Pos() int
}

// Expression is every node below Program. The language has no statements;
// each construct produces a value.
type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Commands []Expression
}

func (p *Program) TokenLiteral() string {
	if len(p.Commands) > 0 {
		return p.Commands[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() int {
	if len(p.Commands) > 0 {
		return p.Commands[0].Pos()
	}
	return 0
}

func (p *Program) String() string {
	return joinNodes(p.Commands, "\n")
}

// Sequence is a list of commands evaluated in order, yielding the last value.
type Sequence struct {
	Token    token.Token
	Commands []Expression
}

func (s *Sequence) expressionNode()      {}
func (s *Sequence) TokenLiteral() string { return s.Token.Literal }
func (s *Sequence) Pos() int             { return s.Token.Position }
func (s *Sequence) String() string       { return "(" + joinNodes(s.Commands, "; ") + ")" }

// Literals

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) Pos() int             { return il.Token.Position }
func (il *IntegerLiteral) String() string       { return strconv.FormatInt(il.Value, 10) }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) Pos() int             { return fl.Token.Position }
func (fl *FloatLiteral) String() string {
	s := strconv.FormatFloat(fl.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() int             { return sl.Token.Position }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }

// InterpolatedString holds literal parts as *StringLiteral and embedded code
// as any other expression.
type InterpolatedString struct {
	Token token.Token
	Parts []Expression
}

func (is *InterpolatedString) expressionNode()      {}
func (is *InterpolatedString) TokenLiteral() string { return is.Token.Literal }
func (is *InterpolatedString) Pos() int             { return is.Token.Position }
func (is *InterpolatedString) String() string {
	var out bytes.Buffer
	out.WriteString(`"`)
	for _, part := range is.Parts {
		if s, ok := part.(*StringLiteral); ok {
			q := strconv.Quote(s.Value)
			out.WriteString(q[1 : len(q)-1])
			continue
		}
		out.WriteString("#{" + part.String() + "}")
	}
	out.WriteString(`"`)
	return out.String()
}

type SymbolLiteral struct {
	Token token.Token
	Value string
}

func (sl *SymbolLiteral) expressionNode()      {}
func (sl *SymbolLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *SymbolLiteral) Pos() int             { return sl.Token.Position }
func (sl *SymbolLiteral) String() string       { return ":" + sl.Value }

type ArrayLiteral struct {
	Token    token.Token // the [ token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Pos() int             { return al.Token.Position }
func (al *ArrayLiteral) String() string       { return "[" + joinNodes(al.Elements, ", ") + "]" }

// HashPair is one entry of a hash literal. A nil Key marks a **splat of
// Value.
type HashPair struct {
	Key   Expression
	Value Expression
}

type HashLiteral struct {
	Token token.Token // the { token, or the first key of bare keyword arguments
	Pairs []HashPair
	// Bare is set for `key: value` arguments written without braces.
	Bare bool
}

func (hl *HashLiteral) expressionNode()      {}
func (hl *HashLiteral) TokenLiteral() string { return hl.Token.Literal }
func (hl *HashLiteral) Pos() int             { return hl.Token.Position }
func (hl *HashLiteral) String() string {
	pairs := make([]string, 0, len(hl.Pairs))
	for _, pair := range hl.Pairs {
		if pair.Key == nil {
			pairs = append(pairs, "**"+pair.Value.String())
			continue
		}
		pairs = append(pairs, pair.Key.String()+" => "+pair.Value.String())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

type RangeLiteral struct {
	Token     token.Token // the .. or ... token
	Low       Expression
	High      Expression // nil for an endless range
	Exclusive bool
}

func (rl *RangeLiteral) expressionNode()      {}
func (rl *RangeLiteral) TokenLiteral() string { return rl.Token.Literal }
func (rl *RangeLiteral) Pos() int             { return rl.Token.Position }
func (rl *RangeLiteral) String() string {
	high := ""
	if rl.High != nil {
		high = rl.High.String()
	}
	return "(" + rl.Low.String() + rl.Token.Literal + high + ")"
}

type NilLiteral struct {
	Token token.Token
}

func (nl *NilLiteral) expressionNode()      {}
func (nl *NilLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NilLiteral) Pos() int             { return nl.Token.Position }
func (nl *NilLiteral) String() string       { return "nil" }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() int             { return bl.Token.Position }
func (bl *BooleanLiteral) String() string       { return strconv.FormatBool(bl.Value) }

type SelfExpression struct {
	Token token.Token
}

func (se *SelfExpression) expressionNode()      {}
func (se *SelfExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SelfExpression) Pos() int             { return se.Token.Position }
func (se *SelfExpression) String() string       { return "self" }

// Names and variables

// NameExpression is a bare identifier: a local variable, a constant, or a
// method call on self without arguments.
type NameExpression struct {
	Token token.Token
	Name  string
	// Lenient reads of undefined names yield nil instead of raising; used by
	// the `x ||= v` rewrite.
	Lenient bool
	// Local is set when an assignment earlier in the scope declared the
	// name, so an unassigned read is nil rather than a method call.
	Local bool
}

func (ne *NameExpression) expressionNode()      {}
func (ne *NameExpression) TokenLiteral() string { return ne.Token.Literal }
func (ne *NameExpression) Pos() int             { return ne.Token.Position }
func (ne *NameExpression) String() string       { return ne.Name }

type InstanceVariable struct {
	Token token.Token
	Name  string // including the @
}

func (iv *InstanceVariable) expressionNode()      {}
func (iv *InstanceVariable) TokenLiteral() string { return iv.Token.Literal }
func (iv *InstanceVariable) Pos() int             { return iv.Token.Position }
func (iv *InstanceVariable) String() string       { return iv.Name }

type ClassVariable struct {
	Token   token.Token
	Name    string // including the @@
	Lenient bool
}

func (cv *ClassVariable) expressionNode()      {}
func (cv *ClassVariable) TokenLiteral() string { return cv.Token.Literal }
func (cv *ClassVariable) Pos() int             { return cv.Token.Position }
func (cv *ClassVariable) String() string       { return cv.Name }

type GlobalVariable struct {
	Token token.Token
	Name  string // including the $
}

func (gv *GlobalVariable) expressionNode()      {}
func (gv *GlobalVariable) TokenLiteral() string { return gv.Token.Literal }
func (gv *GlobalVariable) Pos() int             { return gv.Token.Position }
func (gv *GlobalVariable) String() string       { return gv.Name }

// ScopedConstant is `Scope::Name`, or `::Name` when Scope is nil.
type ScopedConstant struct {
	Token token.Token // the :: token
	Scope Expression
	Name  string
}

func (sc *ScopedConstant) expressionNode()      {}
func (sc *ScopedConstant) TokenLiteral() string { return sc.Token.Literal }
func (sc *ScopedConstant) Pos() int             { return sc.Token.Position }
func (sc *ScopedConstant) String() string {
	if sc.Scope == nil {
		return "::" + sc.Name
	}
	return sc.Scope.String() + "::" + sc.Name
}

// Operators

type UnaryExpression struct {
	Token    token.Token // the operator token
	Operator string      // "!", "-", "+" or "~"
	Right    Expression
}

func (ue *UnaryExpression) expressionNode()      {}
func (ue *UnaryExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UnaryExpression) Pos() int             { return ue.Token.Position }
func (ue *UnaryExpression) String() string       { return "(" + ue.Operator + ue.Right.String() + ")" }

type BinaryExpression struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (be *BinaryExpression) expressionNode()      {}
func (be *BinaryExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BinaryExpression) Pos() int             { return be.Token.Position }
func (be *BinaryExpression) String() string {
	return "(" + be.Left.String() + " " + be.Operator + " " + be.Right.String() + ")"
}

// LogicalExpression is a short-circuiting `&&` / `||` (also `and` / `or`).
type LogicalExpression struct {
	Token    token.Token
	Left     Expression
	Operator string // "&&" or "||"
	Right    Expression
}

func (le *LogicalExpression) expressionNode()      {}
func (le *LogicalExpression) TokenLiteral() string { return le.Token.Literal }
func (le *LogicalExpression) Pos() int             { return le.Token.Position }
func (le *LogicalExpression) String() string {
	return "(" + le.Left.String() + " " + le.Operator + " " + le.Right.String() + ")"
}

type DefinedExpression struct {
	Token      token.Token
	Expression Expression
}

func (de *DefinedExpression) expressionNode()      {}
func (de *DefinedExpression) TokenLiteral() string { return de.Token.Literal }
func (de *DefinedExpression) Pos() int             { return de.Token.Position }
func (de *DefinedExpression) String() string       { return "defined?(" + de.Expression.String() + ")" }

// Calls

// CallExpression is a method call. Receiver is nil for calls on self.
// Keyword arguments arrive as a trailing bare *HashLiteral in Arguments.
type CallExpression struct {
	Token     token.Token // the method name token
	Receiver  Expression
	Name      string
	Arguments []Expression
	Block     *BlockLiteral
	BlockArg  Expression // &blk
	HasParens bool
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() int             { return ce.Token.Position }
func (ce *CallExpression) String() string {
	var out bytes.Buffer
	if ce.Receiver != nil {
		out.WriteString(ce.Receiver.String())
		out.WriteString(".")
	}
	out.WriteString(ce.Name)
	writeArguments(&out, ce.Arguments, ce.BlockArg, ce.Block)
	return out.String()
}

type IndexExpression struct {
	Token     token.Token // the [ token
	Receiver  Expression
	Arguments []Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Pos() int             { return ie.Token.Position }
func (ie *IndexExpression) String() string {
	return ie.Receiver.String() + "[" + joinNodes(ie.Arguments, ", ") + "]"
}

type SplatExpression struct {
	Token token.Token // the * token
	Value Expression
}

func (se *SplatExpression) expressionNode()      {}
func (se *SplatExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SplatExpression) Pos() int             { return se.Token.Position }
func (se *SplatExpression) String() string       { return "*" + se.Value.String() }

type YieldExpression struct {
	Token     token.Token
	Arguments []Expression
}

func (ye *YieldExpression) expressionNode()      {}
func (ye *YieldExpression) TokenLiteral() string { return ye.Token.Literal }
func (ye *YieldExpression) Pos() int             { return ye.Token.Position }
func (ye *YieldExpression) String() string {
	return "yield(" + joinNodes(ye.Arguments, ", ") + ")"
}

// SuperExpression calls the next method up the ancestor chain. Without an
// argument list (Implicit) it forwards the current method's arguments.
type SuperExpression struct {
	Token     token.Token
	Arguments []Expression
	Implicit  bool
	Block     *BlockLiteral
	BlockArg  Expression
}

func (se *SuperExpression) expressionNode()      {}
func (se *SuperExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SuperExpression) Pos() int             { return se.Token.Position }
func (se *SuperExpression) String() string {
	var out bytes.Buffer
	out.WriteString("super")
	if !se.Implicit {
		writeArguments(&out, se.Arguments, se.BlockArg, se.Block)
	}
	return out.String()
}

// Assignment

// AssignExpression stores Value into Target. Target is one of
// *NameExpression, *InstanceVariable, *ClassVariable, *GlobalVariable,
// *ScopedConstant, *CallExpression (attribute writer) or *IndexExpression.
type AssignExpression struct {
	Token  token.Token // the = token
	Target Expression
	Value  Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignExpression) Pos() int             { return ae.Token.Position }
func (ae *AssignExpression) String() string {
	return "(" + ae.Target.String() + " = " + ae.Value.String() + ")"
}

// MultipleAssignment is `a, b = x, y`. A *SplatExpression target collects
// the remaining values.
type MultipleAssignment struct {
	Token   token.Token
	Targets []Expression
	Value   Expression
}

func (ma *MultipleAssignment) expressionNode()      {}
func (ma *MultipleAssignment) TokenLiteral() string { return ma.Token.Literal }
func (ma *MultipleAssignment) Pos() int             { return ma.Token.Position }
func (ma *MultipleAssignment) String() string {
	return "(" + joinNodes(ma.Targets, ", ") + " = " + ma.Value.String() + ")"
}

// Control flow

// IfExpression covers if/unless/elsif, the ternary operator and the trailing
// modifiers. Negate is set for unless.
type IfExpression struct {
	Token       token.Token
	Condition   Expression
	Consequence Expression
	Alternative Expression
	Negate      bool
}

func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IfExpression) Pos() int             { return ie.Token.Position }
func (ie *IfExpression) String() string {
	var out bytes.Buffer
	if ie.Negate {
		out.WriteString("unless ")
	} else {
		out.WriteString("if ")
	}
	out.WriteString(ie.Condition.String())
	out.WriteString(" then ")
	out.WriteString(nodeString(ie.Consequence))
	if ie.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(ie.Alternative.String())
	}
	out.WriteString(" end")
	return out.String()
}

// WhileExpression covers while/until and their modifier forms.
type WhileExpression struct {
	Token     token.Token
	Condition Expression
	Body      Expression
	Negate    bool // until
}

func (we *WhileExpression) expressionNode()      {}
func (we *WhileExpression) TokenLiteral() string { return we.Token.Literal }
func (we *WhileExpression) Pos() int             { return we.Token.Position }
func (we *WhileExpression) String() string {
	kw := "while "
	if we.Negate {
		kw = "until "
	}
	return kw + we.Condition.String() + " do " + nodeString(we.Body) + " end"
}

type ForExpression struct {
	Token     token.Token
	Variables []string
	Iterable  Expression
	Body      Expression
}

func (fe *ForExpression) expressionNode()      {}
func (fe *ForExpression) TokenLiteral() string { return fe.Token.Literal }
func (fe *ForExpression) Pos() int             { return fe.Token.Position }
func (fe *ForExpression) String() string {
	return "for " + strings.Join(fe.Variables, ", ") + " in " + fe.Iterable.String() +
		" do " + nodeString(fe.Body) + " end"
}

type WhenClause struct {
	Token  token.Token
	Values []Expression
	Body   Expression
}

type CaseExpression struct {
	Token       token.Token
	Subject     Expression // nil for a subject-less case
	Whens       []*WhenClause
	Alternative Expression
}

func (ce *CaseExpression) expressionNode()      {}
func (ce *CaseExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CaseExpression) Pos() int             { return ce.Token.Position }
func (ce *CaseExpression) String() string {
	var out bytes.Buffer
	out.WriteString("case")
	if ce.Subject != nil {
		out.WriteString(" " + ce.Subject.String())
	}
	for _, w := range ce.Whens {
		out.WriteString(" when " + joinNodes(w.Values, ", ") + " then " + nodeString(w.Body))
	}
	if ce.Alternative != nil {
		out.WriteString(" else " + ce.Alternative.String())
	}
	out.WriteString(" end")
	return out.String()
}

type ReturnExpression struct {
	Token token.Token
	Value Expression
}

func (re *ReturnExpression) expressionNode()      {}
func (re *ReturnExpression) TokenLiteral() string { return re.Token.Literal }
func (re *ReturnExpression) Pos() int             { return re.Token.Position }
func (re *ReturnExpression) String() string       { return withValue("return", re.Value) }

type BreakExpression struct {
	Token token.Token
	Value Expression
}

func (be *BreakExpression) expressionNode()      {}
func (be *BreakExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BreakExpression) Pos() int             { return be.Token.Position }
func (be *BreakExpression) String() string       { return withValue("break", be.Value) }

type NextExpression struct {
	Token token.Token
	Value Expression
}

func (ne *NextExpression) expressionNode()      {}
func (ne *NextExpression) TokenLiteral() string { return ne.Token.Literal }
func (ne *NextExpression) Pos() int             { return ne.Token.Position }
func (ne *NextExpression) String() string       { return withValue("next", ne.Value) }

type RedoExpression struct {
	Token token.Token
}

func (re *RedoExpression) expressionNode()      {}
func (re *RedoExpression) TokenLiteral() string { return re.Token.Literal }
func (re *RedoExpression) Pos() int             { return re.Token.Position }
func (re *RedoExpression) String() string       { return "redo" }

// Exceptions

type RescueClause struct {
	Token      token.Token
	Exceptions []Expression // empty means StandardError
	Variable   string
	Body       Expression
}

// BeginExpression is begin/rescue/else/ensure, also used for def and do-block
// bodies that carry rescue clauses and for the `expr rescue fallback`
// modifier.
type BeginExpression struct {
	Token   token.Token
	Body    Expression
	Rescues []*RescueClause
	Else    Expression
	Ensure  Expression
}

func (be *BeginExpression) expressionNode()      {}
func (be *BeginExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BeginExpression) Pos() int             { return be.Token.Position }
func (be *BeginExpression) String() string {
	var out bytes.Buffer
	out.WriteString("begin " + nodeString(be.Body))
	for _, r := range be.Rescues {
		out.WriteString(" rescue")
		if len(r.Exceptions) > 0 {
			out.WriteString(" " + joinNodes(r.Exceptions, ", "))
		}
		if r.Variable != "" {
			out.WriteString(" => " + r.Variable)
		}
		out.WriteString(" then " + nodeString(r.Body))
	}
	if be.Else != nil {
		out.WriteString(" else " + be.Else.String())
	}
	if be.Ensure != nil {
		out.WriteString(" ensure " + be.Ensure.String())
	}
	out.WriteString(" end")
	return out.String()
}

type RaiseExpression struct {
	Token     token.Token
	Arguments []Expression
}

func (re *RaiseExpression) expressionNode()      {}
func (re *RaiseExpression) TokenLiteral() string { return re.Token.Literal }
func (re *RaiseExpression) Pos() int             { return re.Token.Position }
func (re *RaiseExpression) String() string {
	if len(re.Arguments) == 0 {
		return "raise"
	}
	return "raise(" + joinNodes(re.Arguments, ", ") + ")"
}

// Definitions

type ParameterKind int

const (
	RequiredParam ParameterKind = iota
	OptionalParam
	RestParam
	KeywordParam
	KeywordRestParam
	BlockParam
)

type Parameter struct {
	Name    string
	Kind    ParameterKind
	Default Expression // optional and keyword parameters; nil keyword means required
}

func (p *Parameter) String() string {
	switch p.Kind {
	case OptionalParam:
		return p.Name + " = " + p.Default.String()
	case RestParam:
		return "*" + p.Name
	case KeywordParam:
		if p.Default == nil {
			return p.Name + ":"
		}
		return p.Name + ": " + p.Default.String()
	case KeywordRestParam:
		return "**" + p.Name
	case BlockParam:
		return "&" + p.Name
	}
	return p.Name
}

// MethodDefinition is `def name` or `def recv.name` when Singleton is set.
type MethodDefinition struct {
	Token      token.Token
	Singleton  Expression
	Name       string
	Parameters []*Parameter
	Body       Expression
}

func (md *MethodDefinition) expressionNode()      {}
func (md *MethodDefinition) TokenLiteral() string { return md.Token.Literal }
func (md *MethodDefinition) Pos() int             { return md.Token.Position }
func (md *MethodDefinition) String() string {
	var out bytes.Buffer
	out.WriteString("def ")
	if md.Singleton != nil {
		out.WriteString(md.Singleton.String() + ".")
	}
	out.WriteString(md.Name)
	out.WriteString("(" + joinParams(md.Parameters) + ") ")
	out.WriteString(nodeString(md.Body))
	out.WriteString(" end")
	return out.String()
}

type ClassDefinition struct {
	Token      token.Token
	Path       Expression // *NameExpression or *ScopedConstant
	Superclass Expression
	Body       Expression
}

func (cd *ClassDefinition) expressionNode()      {}
func (cd *ClassDefinition) TokenLiteral() string { return cd.Token.Literal }
func (cd *ClassDefinition) Pos() int             { return cd.Token.Position }
func (cd *ClassDefinition) String() string {
	var out bytes.Buffer
	out.WriteString("class " + cd.Path.String())
	if cd.Superclass != nil {
		out.WriteString(" < " + cd.Superclass.String())
	}
	out.WriteString(" " + nodeString(cd.Body) + " end")
	return out.String()
}

// SingletonClassDefinition is `class << target`.
type SingletonClassDefinition struct {
	Token  token.Token
	Target Expression
	Body   Expression
}

func (sd *SingletonClassDefinition) expressionNode()      {}
func (sd *SingletonClassDefinition) TokenLiteral() string { return sd.Token.Literal }
func (sd *SingletonClassDefinition) Pos() int             { return sd.Token.Position }
func (sd *SingletonClassDefinition) String() string {
	return "class << " + sd.Target.String() + " " + nodeString(sd.Body) + " end"
}

type ModuleDefinition struct {
	Token token.Token
	Path  Expression
	Body  Expression
}

func (md *ModuleDefinition) expressionNode()      {}
func (md *ModuleDefinition) TokenLiteral() string { return md.Token.Literal }
func (md *ModuleDefinition) Pos() int             { return md.Token.Position }
func (md *ModuleDefinition) String() string {
	return "module " + md.Path.String() + " " + nodeString(md.Body) + " end"
}

// Closures

// BlockLiteral is a `{ |x| ... }` or `do |x| ... end` body attached to a call.
type BlockLiteral struct {
	Token      token.Token
	Parameters []*Parameter
	Body       Expression
}

func (bl *BlockLiteral) expressionNode()      {}
func (bl *BlockLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BlockLiteral) Pos() int             { return bl.Token.Position }
func (bl *BlockLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	if len(bl.Parameters) > 0 {
		out.WriteString("|" + joinParams(bl.Parameters) + "| ")
	}
	out.WriteString(nodeString(bl.Body))
	out.WriteString(" }")
	return out.String()
}

// ProcLiteral is `-> (x) { }`, `lambda { }` or `proc { }`.
type ProcLiteral struct {
	Token  token.Token
	Block  *BlockLiteral
	Lambda bool
}

func (pl *ProcLiteral) expressionNode()      {}
func (pl *ProcLiteral) TokenLiteral() string { return pl.Token.Literal }
func (pl *ProcLiteral) Pos() int             { return pl.Token.Position }
func (pl *ProcLiteral) String() string {
	if pl.Lambda {
		return "lambda " + pl.Block.String()
	}
	return "proc " + pl.Block.String()
}

func joinNodes[T Node](nodes []T, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}

func joinParams(params []*Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func nodeString(n Expression) string {
	if n == nil {
		return "nil"
	}
	return n.String()
}

func withValue(kw string, value Expression) string {
	if value == nil {
		return kw
	}
	return kw + " " + value.String()
}

func writeArguments(out *bytes.Buffer, args []Expression, blockArg Expression, block *BlockLiteral) {
	parts := make([]string, 0, len(args)+1)
	for _, a := range args {
		parts = append(parts, a.String())
	}
	if blockArg != nil {
		parts = append(parts, "&"+blockArg.String())
	}
	out.WriteString("(" + strings.Join(parts, ", ") + ")")
	if block != nil {
		out.WriteString(" " + block.String())
	}
}
