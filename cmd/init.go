package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/config"
)

var (
	forceInit       bool
	interactiveInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize voipcheck configuration",
	Long: `Create a new voipcheck configuration file at
$XDG_CONFIG_HOME/voipcheck/voipcheck.toml with sensible defaults.

With --interactive you are asked for the adapter address, the keyring
entry and the healthchecks.io ping URLs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		content := config.DefaultConfigText()
		if interactiveInit {
			t, err := promptTemplate()
			if err != nil {
				return err
			}
			content = config.RenderConfig(t)
		}

		if err := config.WriteConfig(path, content, forceInit); err != nil {
			return err
		}

		if forceInit {
			fmt.Printf("✓ Configuration reset at %s\n", path)
		} else {
			fmt.Printf("✓ Configuration initialized at %s\n", path)
		}

		fmt.Println("\nStore the adapter password, then run a check:")
		fmt.Println("  voipcheck password")
		fmt.Println("  voipcheck")

		return nil
	},
}

func promptTemplate() (config.Template, error) {
	t := config.Template{
		AdapterURL: "http://192.168.1.1/",
		Service:    "2100-VOIP2CS",
		Username:   "admin",
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Adapter URL").Value(&t.AdapterURL).Validate(config.CheckURL),
			huh.NewInput().Title("Keyring service").Value(&t.Service).Validate(required("service")),
			huh.NewInput().Title("Adapter username").Value(&t.Username).Validate(required("username")),
		).Title("Adapter"),
		huh.NewGroup(
			huh.NewInput().Title("Adapter ping URL").Value(&t.AdapterPingURL).Validate(optionalURL),
			huh.NewInput().Title("Registration state ping URL").Value(&t.RegistrationStatePingURL).Validate(optionalURL),
			huh.NewInput().Title("Line 1 hook state ping URL").Value(&t.Line1HookStatePingURL).Validate(optionalURL),
			huh.NewInput().Title("Line 2 hook state ping URL").Value(&t.Line2HookStatePingURL).Validate(optionalURL),
		).Title("Heartbeats").Description("Leave a URL empty to disable that signal"),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return t, fmt.Errorf("init cancelled")
		}
		return t, err
	}
	return t, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func optionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return config.CheckURL(strings.TrimSpace(s))
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite existing configuration")
	initCmd.Flags().BoolVarP(&interactiveInit, "interactive", "i", false, "prompt for the settings")
	rootCmd.AddCommand(initCmd)
}
