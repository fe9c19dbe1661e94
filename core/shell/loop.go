package shell

import (
	"context"
	"fmt"
)

// While runs Body as long as Test returns non-zero, then returns 1.
//
// This is the reverse of POSIX while, scripts loop until their test succeeds.
type While struct {
	Test Task
	Body Task
}

var _ Task = (*While)(nil)

func (w *While) Exec(ctx context.Context, ec ExecContext) int {
	for ctx.Err() == nil && execTask(ctx, ec, w.Test) != 0 {
		if ctx.Err() != nil {
			break
		}
		execTask(ctx, ec, w.Body)
	}
	return 1
}

func (w *While) String() string {
	return fmt.Sprintf("while %s; do %s; done", taskString(w.Test), taskString(w.Body))
}
