package commands

import (
	"fmt"
	"strconv"
	"time"
)

// parseSleep accepts plain seconds ("1.5") or Go durations ("200ms").
func parseSleep(arg string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(arg, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid time interval %q", arg)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(arg)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid time interval %q", arg)
	}
	return d, nil
}

// Sleep pauses for the sum of its arguments.
func Sleep(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "sleep NUMBER[SUFFIX]...",
		Short: "Pause for NUMBER seconds, or a duration such as 100ms.",
	}

	return cmd.RunE(p, func() error {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			return fmt.Errorf("missing operand")
		}

		var total time.Duration
		for _, arg := range args {
			d, err := parseSleep(arg)
			if err != nil {
				return err
			}
			total += d
		}

		time.Sleep(total)
		return nil
	})
}

var _ ProcFunc = Sleep
