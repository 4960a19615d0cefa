// Command mixer runs the adaptive mixing engine: the HTTP service, a model
// gateway, an interactive console and the offline replay/inspect tools.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
)

var logLevel string

// exitError carries a process exit code out of a subcommand.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// #region root
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mixer",
		Short: "Adaptive game-music mixing engine",
		Long: `mixer turns gameplay events into musical intents: which stems play,
at what gain, with what fade. Decisions come from a deterministic policy with
a dwell window, or from a language model whose answer is extracted and checked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			mixlog.Configure(mixlog.Config{Level: logLevel})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (defaults to LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(),
		newGatewayCmd(),
		newReplCmd(),
		newReplayCmd(),
		newInspectCmd(),
		newExportCmd(),
		newAdviseCmd(),
	)
	return root
}

// #endregion root

func main() {
	if err := newRootCmd().Execute(); err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		if ee == nil || ee.err != nil {
			fmt.Fprintln(os.Stderr, "mixer:", err)
		}
		os.Exit(code)
	}
}
