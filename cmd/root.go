package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/casewatch/internal/config"
	"github.com/Norgate-AV/casewatch/internal/version"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "casewatch [RECEIPT...]",
		Short: "USCIS case checker and Telegram notifier",
		Long: `Check USCIS case statuses by receipt number, compare them with the
history file and send a Telegram message for every case that changed.

Telegram takes the bot token and the chat id as one flag value or as two
repeated flags:

  casewatch -r EAC9999999999 -f history.csv -t BOT_TOKEN,CHAT_ID
  casewatch -r EAC9999999999 -f history.csv -t BOT_TOKEN -t CHAT_ID

The chat id is numeric or a channel name such as @mychannel.`,
		RunE:         runCheck,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
	}

	cmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)

	cmd.Flags().StringSliceP("receipts", "r", nil, "USCIS receipt numbers (e.g., EAC9999999999)")
	cmd.Flags().StringP("file", "f", "", "History / cache CSV file")
	cmd.Flags().StringSliceP("telegram", "t", nil, "Telegram BOT_TOKEN,CHAT_ID (or -t BOT_TOKEN -t CHAT_ID)")
	cmd.Flags().String("endpoint", config.DefaultEndpoint, "Case status endpoint")
	cmd.Flags().Duration("timeout", config.DefaultTimeout, "HTTP timeout per request")
	cmd.Flags().Int("retries", config.DefaultRetries, "HTTP retries per request")
	cmd.Flags().Bool("fail-fast", config.DefaultFailFast, "Stop at the first failed lookup or notification")
	cmd.Flags().Bool("no-color", config.DefaultNoColor, "Disable colored output")
	cmd.Flags().StringP("log-level", "l", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	cmd.Flags().BoolP("verbose", "v", false, "Verbose output")

	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
