package shell

import (
	"bytes"
	"context"
	"strings"
)

// Fragment is one piece of a Word.
type Fragment interface {
	eval(ctx context.Context, ec ExecContext) string
	String() string
}

// Word is a single argument of a command, the concatenation of its fragments.
type Word []Fragment

// Lit is literal text.
type Lit string

func (l Lit) eval(context.Context, ExecContext) string {
	return string(l)
}

func (l Lit) String() string {
	return string(l)
}

// Var is a reference to a variable, unset variables evaluate to "".
type Var string

func (v Var) eval(_ context.Context, ec ExecContext) string {
	if ec.Env == nil {
		return ""
	}
	return ec.Env.Getenv(string(v))
}

func (v Var) String() string {
	return "$" + string(v)
}

// Subst is the captured output of a task with trailing newlines removed.
//
// The task shares the enclosing environment. Whether variables it assigns are
// seen by the rest of the enclosing command's words is unspecified.
type Subst struct {
	Task Task
}

func (s *Subst) eval(ctx context.Context, ec ExecContext) string {
	if s.Task == nil {
		return ""
	}

	var out bytes.Buffer
	inner := ec
	inner.Stdin = nil
	inner.Stdout = &out

	// The output has to be complete before the word is assembled.
	if cmd, ok := s.Task.(*Command); ok && cmd.Background {
		fg := *cmd
		fg.Background = false
		fg.Exec(ctx, inner)
	} else {
		s.Task.Exec(ctx, inner)
	}

	return strings.TrimRight(out.String(), "\n")
}

func (s *Subst) String() string {
	if s.Task == nil {
		return "$()"
	}
	return "$(" + s.Task.String() + ")"
}

// Evaluate resolves a word to its final string, it never fails.
func Evaluate(ctx context.Context, ec ExecContext, word Word) string {
	if len(word) == 1 {
		return word[0].eval(ctx, ec)
	}

	var sb strings.Builder
	for _, frag := range word {
		sb.WriteString(frag.eval(ctx, ec))
	}
	return sb.String()
}

// EvaluateAll resolves every word in order.
func EvaluateAll(ctx context.Context, ec ExecContext, words []Word) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, Evaluate(ctx, ec, w))
	}
	return out
}

func (w Word) String() string {
	var sb strings.Builder
	for _, frag := range w {
		sb.WriteString(frag.String())
	}
	return sb.String()
}

// Words builds a command line made of literal words.
func Words(args ...string) []Word {
	out := make([]Word, len(args))
	for i, arg := range args {
		out[i] = Word{Lit(arg)}
	}
	return out
}
