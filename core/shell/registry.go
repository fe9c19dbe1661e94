package shell

import (
	"io"
	"sort"

	"github.com/josephlewis42/turtlesh/core/vos"
)

// Builtin is a command that runs inside the shell process.
//
// args holds only the command's own arguments, the name it was invoked as has
// already been removed. The returned value is the command's exit status.
type Builtin interface {
	Exec(env *vos.Env, args []string, stdout io.Writer, stdin io.Reader) int
}

// BuiltinFunc adapts a function to the Builtin interface.
type BuiltinFunc func(env *vos.Env, args []string, stdout io.Writer, stdin io.Reader) int

var _ Builtin = (BuiltinFunc)(nil)

// Exec implements Builtin.
func (f BuiltinFunc) Exec(env *vos.Env, args []string, stdout io.Writer, stdin io.Reader) int {
	return f(env, args, stdout, stdin)
}

// Registry is a read-only table of builtins.
type Registry struct {
	builtins map[string]Builtin
}

// NewRegistry copies the given table, later changes to builtins don't affect
// the registry.
func NewRegistry(builtins map[string]Builtin) *Registry {
	table := make(map[string]Builtin, len(builtins))
	for name, b := range builtins {
		table[name] = b
	}
	return &Registry{builtins: table}
}

// Lookup finds the builtin with the given name. A nil Registry has no
// builtins.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	if r == nil {
		return nil, false
	}
	b, ok := r.builtins[name]
	return b, ok
}

// Names lists the registered builtins in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	var out []string
	for name := range r.builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
