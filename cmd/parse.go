package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/status"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a captured status page",
	Long: `Parse a voice status page saved with "voipcheck capture" and print the
registration and hook state of both lines. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read page: %w", err)
		}

		ds, err := status.Parse(string(data))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for i, line := range ds.Lines() {
			fmt.Fprintf(w, "Line %d\n", i+1)
			fmt.Fprintf(w, "  Registration State: %s\n", line.Registration)
			fmt.Fprintf(w, "  Hook State:         %s\n", line.Hook)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
