package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/heartbeat"
	"github.com/voipcheck/voipcheck/internal/monitor"
)

var (
	pingFail   bool
	pingLog    bool
	pingDetail string
)

var pingCmd = &cobra.Command{
	Use:   "ping <adapter|registration|line1|line2>",
	Short: "Send one heartbeat by hand",
	Long: `Send a single signal to the ping URL configured for a channel. Use it
to check a new healthchecks.io check or to clear a failure by hand.

Examples:
  voipcheck ping adapter
  voipcheck ping line2 --fail -m "Line 2 off hook."
  voipcheck ping registration --log -m "adapter replaced"`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: channelNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pingFail && pingLog {
			return fmt.Errorf("--fail and --log are mutually exclusive")
		}

		channel, err := parseChannel(args[0])
		if err != nil {
			return err
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		url := monitor.TargetsFromConfig(cfg)[channel]
		if url == "" {
			return fmt.Errorf("no ping URL configured for %s", channel)
		}

		signal := heartbeat.Success()
		switch {
		case pingFail:
			signal = heartbeat.Failure(pingDetail)
		case pingLog:
			signal = heartbeat.Log(pingDetail)
		default:
			signal.Detail = pingDetail
		}
		signal.RunID = uuid.NewString()

		_, _, pingTimeout := cfg.Timeouts()
		client := heartbeat.NewHTTPClient(pingTimeout, userAgent())
		defer client.Close()

		if err := client.Ping(cmd.Context(), url, signal); err != nil {
			return err
		}

		fmt.Printf("✓ Sent %s to %s\n", signal.Kind, channel)
		return nil
	},
}

func channelNames() []string {
	names := make([]string, 0, len(monitor.Channels))
	for _, ch := range monitor.Channels {
		names = append(names, string(ch))
	}
	return names
}

func parseChannel(name string) (monitor.Channel, error) {
	for _, ch := range monitor.Channels {
		if strings.EqualFold(name, string(ch)) {
			return ch, nil
		}
	}
	return "", fmt.Errorf("unknown channel %q (expected one of %s)", name, strings.Join(channelNames(), ", "))
}

func init() {
	pingCmd.Flags().BoolVar(&pingFail, "fail", false, "send a failure signal")
	pingCmd.Flags().BoolVar(&pingLog, "log", false, "send a log entry without changing the check state")
	pingCmd.Flags().StringVarP(&pingDetail, "message", "m", "", "text sent as the request body")
	rootCmd.AddCommand(pingCmd)
}
