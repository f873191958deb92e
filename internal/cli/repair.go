package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jzx17/robustfetch/pkg/fetch"
	"github.com/jzx17/robustfetch/pkg/redirect"
)

var repairTimeout time.Duration

var repairCmd = &cobra.Command{
	Use:   "repair <url>",
	Short: "Resolve a 301 redirect by hand and print the repaired target",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepair,
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <location>",
	Short: "Repair and percent-encode a raw Location header value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), redirect.Normalize(args[0]))
	},
}

func init() {
	repairCmd.Flags().DurationVar(&repairTimeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(normalizeCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr, "info", "text", isDebug)

	config := fetch.DefaultTransportConfig()
	config.FollowRedirects = false
	config.Timeout = repairTimeout
	transport := fetch.NewTransport(config)
	defer transport.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), repairTimeout)
	defer cancel()

	target, err := redirect.NewResolver(transport).Resolve(ctx, args[0])
	if err != nil {
		logger.Error("Repair failed", "url", args[0], "error", err)
		return err
	}

	logger.Debug("Repaired redirect", "from", args[0], "to", target)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), target)
	return nil
}
