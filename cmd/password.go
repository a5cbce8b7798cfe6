package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/credentials"
)

var (
	passwordFromStdin bool
	passwordService   string
	passwordUsername  string
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Store the adapter password in the OS keyring",
	Long: `Store the password of the adapter's web interface in the operating
system keyring under the configured service and username.

Examples:
  voipcheck password
  echo "$ADAPTER_PASSWORD" | voipcheck password --stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, username := passwordService, passwordUsername
		if service == "" || username == "" {
			cfg, _, err := loadConfig()
			if err != nil {
				return fmt.Errorf("%w (or pass --service and --username)", err)
			}
			if service == "" {
				service = cfg.Service
			}
			if username == "" {
				username = cfg.Username
			}
		}

		var password string
		var err error
		if passwordFromStdin {
			password, err = readPassword(cmd.InOrStdin())
		} else {
			password, err = promptPassword(service, username)
		}
		if err != nil {
			return err
		}

		if err := (credentials.Keyring{}).Set(service, username, password); err != nil {
			return err
		}

		fmt.Printf("✓ Password stored for %s@%s\n", username, service)
		return nil
	},
}

// readPassword returns the first line of r
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	return password, nil
}

func promptPassword(service, username string) (string, error) {
	var password, confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s@%s", username, service)).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required("password")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", fmt.Errorf("password not changed")
		}
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func init() {
	passwordCmd.Flags().BoolVar(&passwordFromStdin, "stdin", false, "read the password from the first line of stdin")
	passwordCmd.Flags().StringVar(&passwordService, "service", "", "keyring service (default from config)")
	passwordCmd.Flags().StringVar(&passwordUsername, "username", "", "adapter username (default from config)")
	rootCmd.AddCommand(passwordCmd)
}
