package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/adapter"
	"github.com/voipcheck/voipcheck/internal/credentials"
	"github.com/voipcheck/voipcheck/internal/logging"
	"github.com/voipcheck/voipcheck/internal/tui"
)

var captureOutput string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save the adapter's voice status page",
	Long: `Log in to the adapter and write the raw content of the voice status
page, as the parser sees it, to stdout or a file. Useful for checking a
firmware that voipcheck does not recognize.

Example:
  voipcheck capture -o voice.html
  voipcheck parse voice.html`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		creds, err := credentials.Lookup(credentials.Keyring{}, cfg.Service, cfg.Username)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		logger := logging.Nop()
		if verbose {
			logger, err = logging.New(logging.Options{Level: cfg.Log.Level, Console: true})
			if err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fetchTimeout, stepTimeout, _ := cfg.Timeouts()
		fetcher := adapter.NewRodFetcher(cfg.Browser.Bin, cfg.Browser.IsHeadless(), fetchTimeout, stepTimeout, logger.Logger)

		var out adapter.Outcome
		fetch := func() error {
			out = fetcher.Fetch(ctx, cfg.AdapterURL, creds)
			return nil
		}
		if verbose {
			err = fetch()
		} else {
			err = tui.Spin(ctx, cmd.ErrOrStderr(), "Reading "+adapter.VoicePath+" from "+cfg.AdapterURL, fetch)
		}
		if err != nil {
			return err
		}
		if !out.OK() {
			return fmt.Errorf("adapter unreachable: %w", out.Err)
		}

		if captureOutput == "" || captureOutput == "-" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), out.Content)
			return err
		}
		if err := os.WriteFile(captureOutput, []byte(out.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write capture: %w", err)
		}
		fmt.Printf("✓ Status page written to %s (%d bytes)\n", captureOutput, len(out.Content))
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "file to write (default stdout)")
	rootCmd.AddCommand(captureCmd)
}
