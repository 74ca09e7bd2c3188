package sqltpl

import (
	"errors"
	"fmt"
	"regexp"
	"text/template/parse"
)

// ErrUnsafeValue is returned when a template interpolates a value directly
// into the SQL text that does not match the safe identifier pattern. Values
// must either be plain identifiers, wrapped in Raw, or routed through the
// bind template function.
var ErrUnsafeValue = errors.New("unsafe sql value")

// Raw marks a string as intentionally injected SQL. Values of this type
// bypass the interpolation safety check, so they must never be built from
// untrusted input.
type Raw string

var safeValueRe = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// checkFuncName is the internal template function appended to every output
// action by rewriteTree. The name is a valid Go identifier so it can be
// registered in a FuncMap, but obscure enough not to collide with user funcs.
const checkFuncName = "_gsql_check"

// checkValue is the implementation behind checkFuncName. It admits Raw
// values unchanged and nil as an empty string; everything else is formatted
// with fmt.Sprint and must match the safe identifier pattern.
func checkValue(v any) (Raw, error) {
	if v == nil {
		return "", nil
	}
	if r, ok := v.(Raw); ok {
		return r, nil
	}
	s := fmt.Sprint(v)
	if !safeValueRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeValue, s)
	}
	return Raw(s), nil
}

// rewriteTree appends the safety check to every output action in the parse
// tree, so that `{{.col}}` behaves like `{{.col | _gsql_check}}`. Variable
// declarations produce no output and are left alone. The rewrite is
// idempotent: actions already ending in the check function are skipped.
func rewriteTree(tree *parse.Tree) {
	if tree == nil || tree.Root == nil {
		return
	}
	rewriteList(tree.Root)
}

func rewriteList(list *parse.ListNode) {
	if list == nil {
		return
	}
	for _, n := range list.Nodes {
		rewriteNode(n)
	}
}

func rewriteNode(n parse.Node) {
	switch n := n.(type) {
	case *parse.ActionNode:
		rewriteAction(n)
	case *parse.IfNode:
		rewriteList(n.List)
		rewriteList(n.ElseList)
	case *parse.RangeNode:
		rewriteList(n.List)
		rewriteList(n.ElseList)
	case *parse.WithNode:
		rewriteList(n.List)
		rewriteList(n.ElseList)
	case *parse.ListNode:
		rewriteList(n)
	}
}

func rewriteAction(a *parse.ActionNode) {
	if a.Pipe == nil || len(a.Pipe.Cmds) == 0 {
		return
	}
	// Assignments like {{$x := .y}} write nothing to the output.
	if len(a.Pipe.Decl) > 0 {
		return
	}
	last := a.Pipe.Cmds[len(a.Pipe.Cmds)-1]
	if len(last.Args) > 0 {
		if ident, ok := last.Args[0].(*parse.IdentifierNode); ok && ident.Ident == checkFuncName {
			return
		}
	}
	pos := a.Pipe.Position()
	a.Pipe.Cmds = append(a.Pipe.Cmds, &parse.CommandNode{
		NodeType: parse.NodeCommand,
		Pos:      pos,
		Args:     []parse.Node{parse.NewIdentifier(checkFuncName).SetPos(pos)},
	})
}
