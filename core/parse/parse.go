// Package parse turns shell text into a task tree.
//
// Only the subset of sh that the task engine can run is accepted: simple
// commands, pipelines, lists, && and ||, while loops, if clauses, output
// redirection and $NAME, ${NAME} and $(...) expansions.
package parse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/josephlewis42/turtlesh/core/shell"
	"mvdan.cc/sh/v3/syntax"
)

// SyntaxError is returned when the input uses syntax the engine can't run.
type SyntaxError struct {
	Pos  syntax.Pos
	What string
	// Debug holds a dump of the offending node.
	Debug string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: unsupported %s", e.Pos, e.What)
}

func unsupported(node syntax.Node, what string) error {
	buf := &bytes.Buffer{}
	syntax.DebugPrint(buf, node)

	return &SyntaxError{
		Pos:   node.Pos(),
		What:  what,
		Debug: buf.String(),
	}
}

// Parse parses a whole script.
func Parse(src string) (shell.Task, error) {
	return ParseReader(strings.NewReader(src), "")
}

// ParseReader parses a script read from r, name is used in error messages.
func ParseReader(r io.Reader, name string) (shell.Task, error) {
	file, err := syntax.NewParser().Parse(r, name)
	if err != nil {
		return nil, err
	}

	return convertStmts(file.Stmts)
}

// IsIncomplete reports whether err came from input that ended in the middle
// of a statement, so more lines could complete it.
func IsIncomplete(err error) bool {
	return syntax.IsIncomplete(err)
}

func convertStmts(stmts []*syntax.Stmt) (shell.Task, error) {
	if len(stmts) == 0 {
		return &shell.Command{}, nil
	}

	first, err := convertStmt(stmts[0])
	if err != nil {
		return nil, err
	}
	if len(stmts) == 1 {
		return first, nil
	}

	rest, err := convertStmts(stmts[1:])
	if err != nil {
		return nil, err
	}
	return &shell.Sequence{First: first, Second: rest}, nil
}

func convertStmt(stmt *syntax.Stmt) (shell.Task, error) {
	switch {
	case stmt.Negated:
		return nil, unsupported(stmt, "negation")
	case stmt.Coprocess:
		return nil, unsupported(stmt, "coprocess")
	}

	task, err := convertCommand(stmt.Cmd)
	if err != nil {
		return nil, err
	}

	if len(stmt.Redirs) > 0 {
		cmd, ok := task.(*shell.Command)
		if !ok {
			return nil, unsupported(stmt, "redirection of compound command")
		}
		for _, r := range stmt.Redirs {
			redirect, err := convertRedirect(r)
			if err != nil {
				return nil, err
			}
			cmd.Redirect = redirect
		}
	}

	if stmt.Background {
		cmd, ok := task.(*shell.Command)
		if !ok {
			return nil, unsupported(stmt, "background compound command")
		}
		cmd.Background = true
	}

	return task, nil
}

func convertCommand(node syntax.Command) (shell.Task, error) {
	switch node := node.(type) {
	case nil:
		return &shell.Command{}, nil

	case *syntax.CallExpr:
		return convertCall(node)

	case *syntax.BinaryCmd:
		x, err := convertStmt(node.X)
		if err != nil {
			return nil, err
		}
		y, err := convertStmt(node.Y)
		if err != nil {
			return nil, err
		}

		switch node.Op {
		case syntax.AndStmt:
			return &shell.And{Test: x, Then: y}, nil
		case syntax.OrStmt:
			return &shell.Or{Test: x, Then: y}, nil
		case syntax.Pipe:
			head, ok := x.(*shell.Command)
			if !ok || head.Background {
				return nil, unsupported(node.X, "pipe from compound command")
			}
			tail := head
			for {
				next, ok := tail.Destination.(*shell.Command)
				if !ok {
					break
				}
				tail = next
			}
			if tail.Destination != nil {
				return nil, unsupported(node.X, "pipe from compound command")
			}
			tail.Destination = y
			return head, nil
		default:
			return nil, unsupported(node, "operator "+node.Op.String())
		}

	case *syntax.WhileClause:
		if node.Until {
			return nil, unsupported(node, "until loop")
		}
		test, err := convertStmts(node.Cond)
		if err != nil {
			return nil, err
		}
		body, err := convertStmts(node.Do)
		if err != nil {
			return nil, err
		}
		return &shell.While{Test: test, Body: body}, nil

	case *syntax.IfClause:
		return convertIf(node)

	case *syntax.DeclClause:
		return convertDecl(node)

	case *syntax.Block:
		return convertStmts(node.Stmts)

	case *syntax.Subshell:
		return convertStmts(node.Stmts)

	default:
		return nil, unsupported(node, fmt.Sprintf("command %T", node))
	}
}

func convertIf(node *syntax.IfClause) (shell.Task, error) {
	test, err := convertStmts(node.Cond)
	if err != nil {
		return nil, err
	}
	then, err := convertStmts(node.Then)
	if err != nil {
		return nil, err
	}

	out := &shell.If{Test: test, Then: then}

	switch els := node.Else; {
	case els == nil:
	case len(els.Cond) == 0:
		// plain else
		if out.Else, err = convertStmts(els.Then); err != nil {
			return nil, err
		}
	default:
		// elif
		if out.Else, err = convertIf(els); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func convertCall(call *syntax.CallExpr) (shell.Task, error) {
	var assigns []shell.Assign
	for _, a := range call.Assigns {
		assign, err := convertAssign(a)
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, assign)
	}

	if len(call.Args) == 0 {
		// NAME=value on its own sets session variables.
		var out shell.Task
		for i := len(assigns) - 1; i >= 0; i-- {
			a := assigns[i]
			word := append(shell.Word{shell.Lit(a.Name + "=")}, a.Value...)
			var cmd shell.Task = &shell.Command{Words: []shell.Word{word}}
			if out != nil {
				cmd = &shell.Sequence{First: cmd, Second: out}
			}
			out = cmd
		}
		if out == nil {
			out = &shell.Command{}
		}
		return out, nil
	}

	cmd := &shell.Command{Assigns: assigns}
	for _, w := range call.Args {
		word, err := convertWord(w)
		if err != nil {
			return nil, err
		}
		cmd.Words = append(cmd.Words, word)
	}
	return cmd, nil
}

// convertDecl runs export as an ordinary builtin with NAME=value words.
func convertDecl(decl *syntax.DeclClause) (shell.Task, error) {
	if decl.Variant == nil || decl.Variant.Value != "export" {
		return nil, unsupported(decl, "declaration")
	}

	cmd := &shell.Command{Words: []shell.Word{{shell.Lit("export")}}}
	for _, a := range decl.Args {
		var word shell.Word
		switch {
		case a.Naked && a.Name != nil:
			word = shell.Word{shell.Lit(a.Name.Value)}
		case a.Naked:
			value, err := convertWord(a.Value)
			if err != nil {
				return nil, err
			}
			word = value
		case a.Append || a.Index != nil || a.Array != nil:
			return nil, unsupported(a, "export of "+a.Name.Value)
		default:
			value, err := convertWord(a.Value)
			if err != nil {
				return nil, err
			}
			word = append(shell.Word{shell.Lit(a.Name.Value + "=")}, value...)
		}
		cmd.Words = append(cmd.Words, word)
	}
	return cmd, nil
}

func convertAssign(a *syntax.Assign) (shell.Assign, error) {
	switch {
	case a.Name == nil || a.Naked:
		return shell.Assign{}, unsupported(a, "declaration")
	case a.Append:
		return shell.Assign{}, unsupported(a, "append assignment")
	case a.Index != nil || a.Array != nil:
		return shell.Assign{}, unsupported(a, "array assignment")
	}

	value, err := convertWord(a.Value)
	if err != nil {
		return shell.Assign{}, err
	}
	return shell.Assign{Name: a.Name.Value, Value: value}, nil
}

func convertRedirect(r *syntax.Redirect) (*shell.Redirect, error) {
	if r.N != nil && r.N.Value != "1" {
		return nil, unsupported(r, "redirection of fd "+r.N.Value)
	}

	var appendOut bool
	switch r.Op {
	case syntax.RdrOut, syntax.ClbOut:
	case syntax.AppOut:
		appendOut = true
	default:
		return nil, unsupported(r, "redirection "+r.Op.String())
	}

	target, err := convertWord(r.Word)
	if err != nil {
		return nil, err
	}
	return &shell.Redirect{Target: target, Append: appendOut}, nil
}

func convertWord(w *syntax.Word) (shell.Word, error) {
	if w == nil {
		return shell.Word{}, nil
	}

	var out shell.Word
	for _, part := range w.Parts {
		frags, err := convertPart(part, false)
		if err != nil {
			return nil, err
		}
		out = append(out, frags...)
	}
	return out, nil
}

func convertPart(part syntax.WordPart, quoted bool) ([]shell.Fragment, error) {
	switch part := part.(type) {
	case *syntax.Lit:
		if quoted {
			return []shell.Fragment{shell.Lit(unescapeQuoted(part.Value))}, nil
		}
		return []shell.Fragment{shell.Lit(unescape(part.Value))}, nil

	case *syntax.SglQuoted:
		if part.Dollar {
			return nil, unsupported(part, "$'...' string")
		}
		return []shell.Fragment{shell.Lit(part.Value)}, nil

	case *syntax.DblQuoted:
		if part.Dollar {
			return nil, unsupported(part, `$"..." string`)
		}
		var out []shell.Fragment
		for _, sub := range part.Parts {
			frags, err := convertPart(sub, true)
			if err != nil {
				return nil, err
			}
			out = append(out, frags...)
		}
		if len(out) == 0 {
			// "" is still an argument.
			out = append(out, shell.Lit(""))
		}
		return out, nil

	case *syntax.ParamExp:
		switch {
		case part.Param == nil:
			return nil, unsupported(part, "parameter expansion")
		case part.Excl, part.Length, part.Width, part.Index != nil,
			part.Slice != nil, part.Repl != nil, part.Names != 0, part.Exp != nil:
			return nil, unsupported(part, "parameter expansion")
		}
		return []shell.Fragment{shell.Var(part.Param.Value)}, nil

	case *syntax.CmdSubst:
		task, err := convertStmts(part.Stmts)
		if err != nil {
			return nil, err
		}
		return []shell.Fragment{&shell.Subst{Task: task}}, nil

	default:
		return nil, unsupported(part, fmt.Sprintf("word part %T", part))
	}
}

// unescape removes the backslashes of an unquoted literal.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// unescapeQuoted removes the backslashes that are special inside double
// quotes.
func unescapeQuoted(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte("$`\"\\\n", s[i+1]) >= 0 {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
