// Package traverse implements the two-phase tree walker that powers all
// transformations.
//
// A Walk visits every node depth-first, running enter handlers before a
// node's children and exit handlers after. Handlers receive a Path cursor
// bound to the node's slot in its parent, through which they can replace
// the node or insert siblings mid-walk: nodes inserted after the current
// one are visited exactly once when the walk reaches them, nodes inserted
// before it are not visited at all. Child lists are re-measured on every
// step, so structural edits made by handlers are immediately visible.
package traverse

import (
	"fmt"
	"reflect"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// Phase selects when a handler runs relative to a node's children.
type Phase int

const (
	Enter Phase = iota // before the node's children
	Exit               // after the node's children
)

// Handler is a visitor callback. Returning a non-nil error aborts the walk;
// the error surfaces as a traversal failure naming the visitor.
type Handler func(p *Path) error

// Visitor is a named bundle of handlers keyed by phase and node kind.
// Handlers run in registration order; when several visitors are walked
// together they run in the order given to Walk.
type Visitor struct {
	Name     string
	handlers [2]map[ast.Kind][]Handler
}

// NewVisitor creates an empty visitor with the given name. The name appears
// in traversal errors, so pick something a log reader can act on.
func NewVisitor(name string) *Visitor {
	v := &Visitor{Name: name}
	v.handlers[Enter] = make(map[ast.Kind][]Handler)
	v.handlers[Exit] = make(map[ast.Kind][]Handler)
	return v
}

// Register adds a handler for the given phase and kinds.
func (v *Visitor) Register(phase Phase, h Handler, kinds ...ast.Kind) *Visitor {
	for _, k := range kinds {
		v.handlers[phase][k] = append(v.handlers[phase][k], h)
	}
	return v
}

// OnEnter adds an enter-phase handler for the given kinds.
func (v *Visitor) OnEnter(h Handler, kinds ...ast.Kind) *Visitor {
	return v.Register(Enter, h, kinds...)
}

// OnExit adds an exit-phase handler for the given kinds.
func (v *Visitor) OnExit(h Handler, kinds ...ast.Kind) *Visitor {
	return v.Register(Exit, h, kinds...)
}

// Path is the cursor handed to handlers. It is only valid for the duration
// of the handler call; handlers must not retain it.
type Path struct {
	parent ast.Node

	get          func() ast.Node
	set          func(ast.Node) error
	insertBefore func(...ast.Node) error
	insertAfter  func(...ast.Node) error
}

// Node returns the node the cursor currently points at.
func (p *Path) Node() ast.Node { return p.get() }

// Parent returns the node that owns the current slot, or nil at the root.
func (p *Path) Parent() ast.Node { return p.parent }

// Replace swaps the current node for another. The replacement must fit the
// slot (a statement slot takes statements, an expression slot expressions).
// The walk continues into the replacement's children.
func (p *Path) Replace(n ast.Node) error {
	return p.set(n)
}

// InsertBefore inserts siblings immediately before the current node. The
// inserted nodes are not visited. Only valid when the current node lives
// in a child list.
func (p *Path) InsertBefore(nodes ...ast.Node) error {
	if p.insertBefore == nil {
		return cherrors.New("TRAVERSE-0002", map[string]any{"NodeKind": p.Node().Kind()})
	}
	return p.insertBefore(nodes...)
}

// InsertAfter inserts siblings immediately after the current node's subtree.
// Each inserted node is visited exactly once when the walk reaches it. Only
// valid when the current node lives in a child list.
func (p *Path) InsertAfter(nodes ...ast.Node) error {
	if p.insertAfter == nil {
		return cherrors.New("TRAVERSE-0002", map[string]any{"NodeKind": p.Node().Kind()})
	}
	return p.insertAfter(nodes...)
}

// Evaluate attempts structural constant evaluation of the current node.
// The boolean reports confidence: false means the node's value depends on
// something the evaluator cannot see and must not be folded.
func (p *Path) Evaluate() (any, bool) {
	return Evaluate(p.Node())
}

// Walk traverses the tree rooted at root, running the visitors' handlers at
// every node. The root itself is visited but cannot be replaced or given
// siblings.
func Walk(root ast.Node, visitors ...*Visitor) error {
	e := &engine{visitors: visitors}
	get := func() ast.Node { return root }
	set := func(ast.Node) error {
		return cherrors.New("TRAVERSE-0003", map[string]any{"Slot": "root"})
	}
	return e.visitSlot(get, set, nil, nil, nil)
}

type engine struct {
	visitors []*Visitor
}

// visitSlot visits the node held by a slot: enter handlers, children of the
// (possibly replaced) node, then exit handlers.
func (e *engine) visitSlot(get func() ast.Node, set func(ast.Node) error, parent ast.Node, insertBefore, insertAfter func(...ast.Node) error) error {
	if isNilNode(get()) {
		return nil
	}
	p := &Path{
		parent:       parent,
		get:          get,
		set:          set,
		insertBefore: insertBefore,
		insertAfter:  insertAfter,
	}

	if err := e.runHandlers(Enter, p); err != nil {
		return err
	}
	if err := e.walkChildren(p.Node()); err != nil {
		return err
	}
	return e.runHandlers(Exit, p)
}

// runHandlers runs every visitor's handlers for the node's kind. If a
// handler replaces the node with a different kind, the remaining handlers
// for the old kind are skipped.
func (e *engine) runHandlers(phase Phase, p *Path) error {
	startKind := p.Node().Kind()
	for _, v := range e.visitors {
		for _, h := range v.handlers[phase][startKind] {
			if err := callHandler(v, h, p); err != nil {
				return err
			}
			if p.Node().Kind() != startKind {
				return nil
			}
		}
	}
	return nil
}

// callHandler invokes one handler, converting both returned errors and
// panics into traversal errors that name the visitor.
func callHandler(v *Visitor, h Handler, p *Path) (err error) {
	node := p.Node()
	defer func() {
		if r := recover(); r != nil {
			err = traverseFault(v.Name, node, fmt.Sprintf("panic: %v", r))
		}
	}()

	if herr := h(p); herr != nil {
		if cerr, ok := herr.(*cherrors.Error); ok {
			return cerr
		}
		return traverseFault(v.Name, node, herr.Error())
	}
	return nil
}

func traverseFault(visitor string, node ast.Node, cause string) *cherrors.Error {
	line, column := node.Pos()
	return cherrors.NewWithPosition("TRAVERSE-0001", line, column, map[string]any{
		"Visitor":  visitor,
		"NodeKind": node.Kind(),
		"Cause":    cause,
	})
}

// walkChildren dispatches to the per-kind child slots. Tokens, names, and
// import specifiers are not nodes and are not visited.
func (e *engine) walkChildren(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Program:
		return walkList(e, &node.Statements, node, "statement")
	case *ast.VariableDeclaration:
		return walkList(e, &node.Declarations, node, "declarator")
	case *ast.VariableDeclarator:
		if err := walkSlot(e, &node.Name, n, "identifier"); err != nil {
			return err
		}
		return walkSlot(e, &node.Init, n, "expression")
	case *ast.FunctionDeclaration:
		if err := walkList(e, &node.Decorators, node, "decorator"); err != nil {
			return err
		}
		if err := walkSlot(e, &node.Name, n, "identifier"); err != nil {
			return err
		}
		if err := walkList(e, &node.Params, node, "declarator"); err != nil {
			return err
		}
		return walkSlot(e, &node.Body, n, "block")
	case *ast.BlockStatement:
		return walkList(e, &node.Statements, node, "statement")
	case *ast.ExpressionStatement:
		return walkSlot(e, &node.Expression, n, "expression")
	case *ast.IfStatement:
		if err := walkSlot(e, &node.Test, n, "expression"); err != nil {
			return err
		}
		if err := walkSlot(e, &node.Consequent, n, "block"); err != nil {
			return err
		}
		return walkSlot(e, &node.Alternate, n, "statement")
	case *ast.ReturnStatement:
		return walkSlot(e, &node.Argument, n, "expression")
	case *ast.ImportDeclaration:
		return walkSlot(e, &node.Source, n, "string")
	case *ast.ExportDeclaration:
		if err := walkSlot(e, &node.Declaration, n, "statement"); err != nil {
			return err
		}
		return walkSlot(e, &node.Expression, n, "expression")
	case *ast.ArrayLiteral:
		return walkList(e, &node.Elements, node, "expression")
	case *ast.ObjectLiteral:
		return walkList(e, &node.Properties, node, "property")
	case *ast.Property:
		if err := walkSlot(e, &node.Key, n, "expression"); err != nil {
			return err
		}
		if node.Shorthand {
			return nil
		}
		return walkSlot(e, &node.Value, n, "expression")
	case *ast.UnaryExpression:
		return walkSlot(e, &node.Operand, n, "expression")
	case *ast.BinaryExpression:
		if err := walkSlot(e, &node.Left, n, "expression"); err != nil {
			return err
		}
		return walkSlot(e, &node.Right, n, "expression")
	case *ast.ConditionalExpression:
		if err := walkSlot(e, &node.Test, n, "expression"); err != nil {
			return err
		}
		if err := walkSlot(e, &node.Consequent, n, "expression"); err != nil {
			return err
		}
		return walkSlot(e, &node.Alternate, n, "expression")
	case *ast.AssignmentExpression:
		if err := walkSlot(e, &node.Target, n, "expression"); err != nil {
			return err
		}
		return walkSlot(e, &node.Value, n, "expression")
	case *ast.CallExpression:
		if err := walkSlot(e, &node.Callee, n, "expression"); err != nil {
			return err
		}
		return walkList(e, &node.Arguments, node, "expression")
	case *ast.MemberExpression:
		if err := walkSlot(e, &node.Object, n, "expression"); err != nil {
			return err
		}
		// non-computed property names are fixed, not expression positions
		if node.Computed {
			return walkSlot(e, &node.Property, n, "expression")
		}
		return nil
	case *ast.ArrowFunction:
		if err := walkList(e, &node.Params, node, "declarator"); err != nil {
			return err
		}
		return walkSlot(e, &node.Body, n, "node")
	case *ast.ImportExpression:
		return walkSlot(e, &node.Source, n, "expression")
	case *ast.SpreadElement:
		return walkSlot(e, &node.Argument, n, "expression")
	case *ast.Decorator:
		return walkSlot(e, &node.Expression, n, "expression")
	case *ast.MarkupElement:
		if err := walkList(e, &node.Attributes, node, "attribute"); err != nil {
			return err
		}
		return walkList(e, &node.Children, node, "markup child")
	case *ast.MarkupAttribute:
		return walkSlot(e, &node.Value, n, "expression")
	case *ast.MarkupExpression:
		return walkSlot(e, &node.Expression, n, "expression")
	default:
		// leaves: identifiers, literals, annotations, markup text
		return nil
	}
}

// walkSlot visits a single-child slot. Replacement rewrites the slot;
// sibling insertion is impossible here and reported as such.
func walkSlot[T ast.Node](e *engine, slot *T, parent ast.Node, slotName string) error {
	get := func() ast.Node {
		n := ast.Node(*slot)
		if isNilNode(n) {
			return nil
		}
		return n
	}
	set := func(n ast.Node) error {
		v, ok := n.(T)
		if !ok {
			return replaceError(n, slotName)
		}
		*slot = v
		return nil
	}
	return e.visitSlot(get, set, parent, nil, nil)
}

// walkList visits every element of a child list with an index-based loop
// that re-reads the length on each step, so handler insertions and
// replacements take effect immediately.
func walkList[T ast.Node](e *engine, list *[]T, parent ast.Node, slotName string) error {
	i := 0
	for i < len(*list) {
		get := func() ast.Node { return ast.Node((*list)[i]) }
		set := func(n ast.Node) error {
			v, ok := n.(T)
			if !ok {
				return replaceError(n, slotName)
			}
			(*list)[i] = v
			return nil
		}
		insertBefore := func(nodes ...ast.Node) error {
			vs, err := convertAll[T](nodes, slotName)
			if err != nil {
				return err
			}
			*list = append((*list)[:i], append(vs, (*list)[i:]...)...)
			i += len(vs) // current node stays current; inserted nodes stay behind the cursor
			return nil
		}
		insertAfter := func(nodes ...ast.Node) error {
			vs, err := convertAll[T](nodes, slotName)
			if err != nil {
				return err
			}
			*list = append((*list)[:i+1], append(vs, (*list)[i+1:]...)...)
			return nil
		}
		if err := e.visitSlot(get, set, parent, insertBefore, insertAfter); err != nil {
			return err
		}
		i++
	}
	return nil
}

func convertAll[T ast.Node](nodes []ast.Node, slotName string) ([]T, error) {
	vs := make([]T, len(nodes))
	for i, n := range nodes {
		v, ok := n.(T)
		if !ok {
			return nil, replaceError(n, slotName)
		}
		vs[i] = v
	}
	return vs, nil
}

func replaceError(n ast.Node, slotName string) *cherrors.Error {
	err := cherrors.New("TRAVERSE-0003", map[string]any{"Slot": slotName})
	if !isNilNode(n) {
		err.Line, err.Column = n.Pos()
	}
	return err
}

// isNilNode reports whether a Node interface holds no value, including the
// typed-nil case that slips through a plain == nil check.
func isNilNode(n ast.Node) bool {
	if n == nil {
		return true
	}
	rv := reflect.ValueOf(n)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
