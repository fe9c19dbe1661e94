package shell

import (
	"context"
	"fmt"
)

// Sequence runs First then Second, returning Second's status.
type Sequence struct {
	First  Task
	Second Task
}

var _ Task = (*Sequence)(nil)

func (s *Sequence) Exec(ctx context.Context, ec ExecContext) int {
	execTask(ctx, ec, s.First)
	return execTask(ctx, ec, s.Second)
}

func (s *Sequence) String() string {
	return fmt.Sprintf("%s; %s", taskString(s.First), taskString(s.Second))
}

// And runs Then only if Test succeeds, otherwise Test's status is returned.
type And struct {
	Test Task
	Then Task
}

var _ Task = (*And)(nil)

func (a *And) Exec(ctx context.Context, ec ExecContext) int {
	if status := execTask(ctx, ec, a.Test); status != 0 {
		return status
	}
	return execTask(ctx, ec, a.Then)
}

func (a *And) String() string {
	return fmt.Sprintf("%s && %s", taskString(a.Test), taskString(a.Then))
}

// Or runs Then only if Test fails. If Test succeeds the result is 0.
type Or struct {
	Test Task
	Then Task
}

var _ Task = (*Or)(nil)

func (o *Or) Exec(ctx context.Context, ec ExecContext) int {
	if status := execTask(ctx, ec, o.Test); status == 0 {
		return 0
	}
	return execTask(ctx, ec, o.Then)
}

func (o *Or) String() string {
	return fmt.Sprintf("%s || %s", taskString(o.Test), taskString(o.Then))
}

// If runs Then when Test returns non-zero and Else, if set, otherwise. The
// result is Test's status.
//
// The polarity matches While; a script written for POSIX sh will take the
// opposite branch.
type If struct {
	Test Task
	Then Task
	Else Task
}

var _ Task = (*If)(nil)

func (i *If) Exec(ctx context.Context, ec ExecContext) int {
	status := execTask(ctx, ec, i.Test)
	if status != 0 {
		execTask(ctx, ec, i.Then)
	} else if i.Else != nil {
		execTask(ctx, ec, i.Else)
	}
	return status
}

func (i *If) String() string {
	if i.Else == nil {
		return fmt.Sprintf("if %s; then %s; fi", taskString(i.Test), taskString(i.Then))
	}
	return fmt.Sprintf("if %s; then %s; else %s; fi", taskString(i.Test), taskString(i.Then), taskString(i.Else))
}

// execTask runs a possibly nil task, a nil task succeeds.
func execTask(ctx context.Context, ec ExecContext, t Task) int {
	if t == nil {
		return 0
	}
	return t.Exec(ctx, ec)
}

func taskString(t Task) string {
	if t == nil {
		return ":"
	}
	return t.String()
}
