package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/monitor"
	"github.com/voipcheck/voipcheck/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the result of the last check",
	Long: `Display the adapter and line states remembered from the last check,
together with the heartbeats that are configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, warnings, err := loadConfig()
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}

		statePath, err := resolveStatePath(cfg)
		if err != nil {
			return err
		}

		state, err := monitor.NewFileStore(statePath).Load()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}

		fmt.Printf("Adapter:  %s\n", cfg.AdapterURL)
		fmt.Printf("Login:    %s@%s\n", cfg.Username, cfg.Service)
		fmt.Printf("Policies: adapter %s, registration %s\n\n", cfg.AdapterPingPolicy, cfg.RegistrationPingPolicy)

		view := tui.StatusView{
			State:      state,
			StatePath:  statePath,
			Heartbeats: tui.HeartbeatsFor(monitor.TargetsFromConfig(cfg)),
		}
		fmt.Print(view.Render())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
