package cmd

import (
	"fmt"
	"io"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Norgate-AV/casewatch/internal/cache"
	"github.com/Norgate-AV/casewatch/internal/config"
	"github.com/Norgate-AV/casewatch/internal/logging"
	"github.com/Norgate-AV/casewatch/internal/notify"
	"github.com/Norgate-AV/casewatch/internal/tracker"
	"github.com/Norgate-AV/casewatch/internal/uscis"
	"github.com/Norgate-AV/casewatch/internal/watch"
)

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForRun(cmd, args)
	if err != nil {
		return err
	}

	// Validate already rejected unknown levels
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(cmd.ErrOrStderr(), level)

	runner, setupErr := newRunner(cfg, logger, cmd.OutOrStdout())
	if runner == nil {
		return setupErr
	}

	_, err = runner.Run(cmd.Context(), cfg.Receipts)

	return multierr.Append(setupErr, err)
}

// newRunner builds the components for cfg. A Telegram connection failure
// does not prevent the run: it is logged, notifications are disabled and the
// error is returned next to the runner so the exit status reflects it.
func newRunner(cfg *config.Config, logger *log.Logger, out io.Writer) (*watch.Runner, error) {
	client, err := uscis.NewClient(cfg.FetchOptions(), logger)
	if err != nil {
		return nil, err
	}

	opts := []tracker.Option{
		tracker.WithOutput(out),
		tracker.WithFailFast(cfg.FailFast),
	}

	if cfg.NoColor {
		opts = append(opts, tracker.WithColor(false))
	}

	runner := &watch.Runner{
		Evaluator: tracker.New(client, logger, opts...),
		Log:       logger,
		FailFast:  cfg.FailFast,
	}

	if cfg.HasHistory() {
		runner.History = cache.New(cfg.HistoryFile, logger)
	}

	if !cfg.HasTelegram() {
		logger.Debug("telegram not configured, notifications disabled")
		return runner, nil
	}

	httpClient := uscis.NewHTTPClient(cfg.Timeout, cfg.Retries, logger).StandardClient()

	bot, err := notify.NewBot(cfg.TelegramToken, cfg.TelegramEndpoint, httpClient)
	if err != nil {
		if cfg.FailFast {
			return nil, err
		}

		logger.WithError(err).Error("notifications disabled for this run")
		return runner, fmt.Errorf("telegram setup: %w", err)
	}

	runner.Notifier = notify.NewTelegram(bot, cfg.TelegramChatID, logger,
		notify.WithMaxLength(cfg.MaxMessageLength),
		notify.WithFailFast(cfg.FailFast),
	)

	return runner, nil
}
