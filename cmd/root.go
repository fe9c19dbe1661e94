package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/turtlesh/core/config"
	"github.com/spf13/cobra"
)

var (
	cfgPath    string
	recordPath string
)

func loadConfig() (*config.Configuration, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}

	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// ExitStatusError carries a non-zero shell status out of a command.
type ExitStatusError int

func (e ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func statusToError(status int) error {
	if status == 0 {
		return nil
	}
	return ExitStatusError(status)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "turtlesh",
	Short: "A small shell built around a task tree.",
	Long: `turtlesh parses shell text into a tree of tasks (commands, pipelines,
sequences, && and ||, while loops and ifs) and runs it with in-process
builtins and external programs.`,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	var status ExitStatusError
	switch {
	case err == nil:
	case errors.As(err, &status):
		os.Exit(int(status))
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory or config.yaml path, the built-in defaults are used if empty")
	rootCmd.PersistentFlags().StringVar(&recordPath, "record", "", "record the session's terminal to this file (.cast or .ttylog), bare names go in the config's recordings directory")
}
