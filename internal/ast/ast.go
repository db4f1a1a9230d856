// Package ast defines the abstract syntax tree node types for the
// prose language (.prose files). Nodes are immutable once constructed
// and every node carries its source span.
package ast

import "github.com/irl-dan/open-prose-sub003/internal/token"

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() token.Span
}

// Statement is the interface for statement nodes.
type Statement interface {
	Node
	stmtNode()
}

// Expression is the interface for expression nodes.
type Expression interface {
	Node
	exprNode()
}

// Program is a parsed .prose file. The top-level statement sequence is
// implicitly sequential. Comments collects every comment in the file in
// source order, including those inside blocks.
type Program struct {
	Path       string
	Statements []Statement
	Comments   []*CommentStatement
	SourceSpan token.Span
}

func (p *Program) Span() token.Span { return p.SourceSpan }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// CommentStatement is a comment occupying its own line.
type CommentStatement struct {
	Text       string // includes the leading '#'
	SourceSpan token.Span
}

func (c *CommentStatement) Span() token.Span { return c.SourceSpan }
func (c *CommentStatement) stmtNode()        {}

// ImportStatement brings a named skill into scope from a source.
type ImportStatement struct {
	SkillName  string
	Source     string
	SourceSpan token.Span
}

func (i *ImportStatement) Span() token.Span { return i.SourceSpan }
func (i *ImportStatement) stmtNode()        {}

// AgentDefinition is a reusable named agent template.
type AgentDefinition struct {
	Name        string
	Model       string
	Prompt      Expression // StringLiteral, may be nil
	Skills      []string
	Permissions []string
	Properties  []*Property
	SourceSpan  token.Span
}

func (a *AgentDefinition) Span() token.Span { return a.SourceSpan }
func (a *AgentDefinition) stmtNode()        {}

// Parameter is a named block parameter with an optional default value.
type Parameter struct {
	Name       string
	Default    Expression // nil when the parameter is required
	SourceSpan token.Span
}

func (p *Parameter) Span() token.Span { return p.SourceSpan }

// BlockDefinition is a named, optionally parameterized group of statements.
type BlockDefinition struct {
	Name       string
	Params     []*Parameter
	Body       []Statement
	SourceSpan token.Span
}

func (b *BlockDefinition) Span() token.Span { return b.SourceSpan }
func (b *BlockDefinition) stmtNode()        {}

// SessionStatement is a single unit of delegated work.
type SessionStatement struct {
	Name       string     // optional session name
	AgentRef   string     // optional agent reference
	Prompt     Expression // StringLiteral, may be nil
	Properties []*Property
	SourceSpan token.Span
}

func (s *SessionStatement) Span() token.Span { return s.SourceSpan }
func (s *SessionStatement) stmtNode()        {}

// Argument is one invocation argument; Name is empty for positional
// arguments.
type Argument struct {
	Name       string
	Value      Expression
	SourceSpan token.Span
}

func (a *Argument) Span() token.Span { return a.SourceSpan }

// DoBlock is a sequential block. With a Target it is a named-block
// invocation; with a Body it is an anonymous sequential group. FromChain
// marks blocks produced from arrow-chain syntax; the compiler records
// implicit-context edges between their statements.
type DoBlock struct {
	Target     string
	Args       []*Argument
	Body       []Statement
	FromChain  bool
	SourceSpan token.Span
}

func (d *DoBlock) Span() token.Span { return d.SourceSpan }
func (d *DoBlock) stmtNode()        {}

// Join strategies for parallel blocks.
const (
	JoinAll   = "all"   // default: wait for every branch
	JoinFirst = "first" // race: first completion wins
	JoinAny   = "any"   // any N completions win
)

// ParallelBlock runs its branches concurrently (a directive for the
// executor; the compiler never runs anything). A parallel-for variant
// carries ForVar/ForCollection instead of discrete branches.
type ParallelBlock struct {
	Strategy      string // JoinAll, JoinFirst, JoinAny
	Count         int    // branch count for JoinAny
	OnFail        string // on-fail policy, empty = default
	ForVar        string
	ForCollection Expression
	Body          []Statement
	SourceSpan    token.Span
}

func (p *ParallelBlock) Span() token.Span { return p.SourceSpan }
func (p *ParallelBlock) stmtNode()        {}

// ChoiceOption is one labeled branch of a choice block.
type ChoiceOption struct {
	Label      string
	Body       []Statement
	SourceSpan token.Span
}

func (c *ChoiceOption) Span() token.Span { return c.SourceSpan }

// ChoiceBlock is an AI-judged branch: the executor picks one option
// using the discretion criteria.
type ChoiceBlock struct {
	Criteria   *DiscretionNode
	Options    []*ChoiceOption
	SourceSpan token.Span
}

func (c *ChoiceBlock) Span() token.Span { return c.SourceSpan }
func (c *ChoiceBlock) stmtNode()        {}

// Loop kinds.
const (
	LoopRepeat = "repeat" // fixed count
	LoopForIn  = "for"    // collection iteration
	LoopUntil  = "until"  // unbounded, condition-terminated
	LoopWhile  = "while"  // unbounded, condition-guarded
)

// LoopBlock is one of the loop family variants. Condition holds a
// DiscretionNode or a boolean expression for until/while loops;
// ConditionText preserves the raw condition source for non-discretion
// conditions. MaxIterations (0 = unset) guards unbounded loops.
type LoopBlock struct {
	Kind          string
	Count         int    // repeat count
	Var           string // for-in binding
	Collection    Expression
	Condition     Expression
	ConditionText string
	MaxIterations int
	Body          []Statement
	SourceSpan    token.Span
}

func (l *LoopBlock) Span() token.Span { return l.SourceSpan }
func (l *LoopBlock) stmtNode()        {}

// TryBlock is structured error handling. Rethrow is set when the catch
// body ends the failure path with a bare throw.
type TryBlock struct {
	Body        []Statement
	CatchName   string // bound error name, may be empty
	CatchBody   []Statement
	Rethrow     bool
	FinallyBody []Statement
	SourceSpan  token.Span
}

func (t *TryBlock) Span() token.Span { return t.SourceSpan }
func (t *TryBlock) stmtNode()        {}

// Binding is a let or const variable binding.
type Binding struct {
	Name       string
	Value      Expression
	Mutable    bool // true for let, false for const
	SourceSpan token.Span
}

func (b *Binding) Span() token.Span { return b.SourceSpan }
func (b *Binding) stmtNode()        {}

// Assignment writes a new value to an existing let binding.
type Assignment struct {
	Name       string
	Value      Expression
	SourceSpan token.Span
}

func (a *Assignment) Span() token.Span { return a.SourceSpan }
func (a *Assignment) stmtNode()        {}

// ExpressionStatement is a bare expression (typically a pipe) used in
// statement position.
type ExpressionStatement struct {
	Expr       Expression
	SourceSpan token.Span
}

func (e *ExpressionStatement) Span() token.Span { return e.SourceSpan }
func (e *ExpressionStatement) stmtNode()        {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Segment is one piece of an interpolated string: literal text or a
// {name} interpolation.
type Segment struct {
	Text          string
	Interpolation bool
}

// StringLiteral is a single- or triple-quoted string. Segments splits
// the value into literal and {name} interpolation pieces.
type StringLiteral struct {
	Value      string
	Segments   []Segment
	Triple     bool
	SourceSpan token.Span
}

func (s *StringLiteral) Span() token.Span { return s.SourceSpan }
func (s *StringLiteral) exprNode()        {}

// NumberLiteral is an integer or decimal literal.
type NumberLiteral struct {
	Raw        string
	Value      float64
	SourceSpan token.Span
}

func (n *NumberLiteral) Span() token.Span { return n.SourceSpan }
func (n *NumberLiteral) exprNode()        {}

// Identifier is a variable or name reference.
type Identifier struct {
	Name       string
	SourceSpan token.Span
}

func (i *Identifier) Span() token.Span { return i.SourceSpan }
func (i *Identifier) exprNode()        {}

// DiscretionNode is an opaque natural-language condition evaluated by
// the external executor, never by this toolkit.
type DiscretionNode struct {
	Text       string
	Multiline  bool
	SourceSpan token.Span
}

func (d *DiscretionNode) Span() token.Span { return d.SourceSpan }
func (d *DiscretionNode) exprNode()        {}

// ArrayExpression is an ordered list literal.
type ArrayExpression struct {
	Elements   []Expression
	SourceSpan token.Span
}

func (a *ArrayExpression) Span() token.Span { return a.SourceSpan }
func (a *ArrayExpression) exprNode()        {}

// ObjectField is one key-value pair of an object literal. Shorthand
// fields ({name}) have Value == nil.
type ObjectField struct {
	Key        string
	Value      Expression
	SourceSpan token.Span
}

func (o *ObjectField) Span() token.Span { return o.SourceSpan }

// ObjectExpression is a named-field record literal.
type ObjectExpression struct {
	Fields     []*ObjectField
	SourceSpan token.Span
}

func (o *ObjectExpression) Span() token.Span { return o.SourceSpan }
func (o *ObjectExpression) exprNode()        {}

// Pipe stage kinds.
const (
	StageMap    = "map"
	StageFilter = "filter"
	StageReduce = "reduce"
	StagePmap   = "pmap"
)

// PipeStage is one stage of a pipe expression. The body acts on an
// implicit per-item binding; reduce additionally binds an accumulator.
type PipeStage struct {
	Kind       string
	AccName    string // reduce accumulator binding
	CurName    string // reduce current-item binding
	Body       []Statement
	SourceSpan token.Span
}

func (p *PipeStage) Span() token.Span { return p.SourceSpan }

// PipeExpression is a source collection flowing through ordered stages.
type PipeExpression struct {
	Source     Expression
	Stages     []*PipeStage
	SourceSpan token.Span
}

func (p *PipeExpression) Span() token.Span { return p.SourceSpan }
func (p *PipeExpression) exprNode()        {}

// Property is a key-value property on sessions and agents (context,
// model, skills, permissions, retry, backoff).
type Property struct {
	Key        string
	Value      Expression
	SourceSpan token.Span
}

func (p *Property) Span() token.Span { return p.SourceSpan }
