package cmd

import (
	"path"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/turtlesh/commands"
	"github.com/josephlewis42/turtlesh/core/vos"
)

type promptInfo struct {
	Hostname string
	Root     bool
	Color    bool
}

func (p *promptInfo) paint(c *color.Color, s string) string {
	if !p.Color {
		return s
	}
	forced := *c
	forced.EnableColor()
	return forced.Sprint(s)
}

// expandPrompt replaces the bash style escapes \u, \h, \H, \w, \W, \$, \n
// and \\ then substitutes variables.
func expandPrompt(format string, env *vos.Env, info promptInfo) string {
	var sb strings.Builder

	for i := 0; i < len(format); i++ {
		if format[i] != '\\' || i+1 == len(format) {
			sb.WriteByte(format[i])
			continue
		}

		i++
		switch format[i] {
		case 'u':
			sb.WriteString(info.paint(commands.ColorBoldGreen, env.Getenv("USER")))
		case 'h':
			host := info.Hostname
			if idx := strings.IndexByte(host, '.'); idx >= 0 {
				host = host[:idx]
			}
			sb.WriteString(info.paint(commands.ColorBoldGreen, host))
		case 'H':
			sb.WriteString(info.paint(commands.ColorBoldGreen, info.Hostname))
		case 'w':
			sb.WriteString(info.paint(commands.ColorBoldBlue, tildePath(env)))
		case 'W':
			wd := tildePath(env)
			if wd != "~" && wd != "/" {
				wd = path.Base(wd)
			}
			sb.WriteString(info.paint(commands.ColorBoldBlue, wd))
		case '$':
			if info.Root {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('$')
			}
		case 'n':
			sb.WriteByte('\n')
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(format[i])
		}
	}

	return env.Substitute(sb.String())
}

// tildePath is the working directory with the home directory shortened to ~.
func tildePath(env *vos.Env) string {
	wd := env.Getwd()
	home := env.Getenv(vos.EnvHome)

	switch {
	case home == "" || home == "/":
		return wd
	case wd == home:
		return "~"
	case strings.HasPrefix(wd, home+"/"):
		return "~" + strings.TrimPrefix(wd, home)
	default:
		return wd
	}
}
