package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no secret is stored for a service and user
var ErrNotFound = errors.New("secret not found")

// Store looks up and stores adapter passwords
type Store interface {
	Get(service, username string) (string, error)
	Set(service, username, password string) error
}

// Credentials are the login details for the adapter's web interface
type Credentials struct {
	Username string
	Password string
}

// Keyring is a Store backed by the operating system keyring
type Keyring struct{}

// Get returns the password stored for service and username
func (Keyring) Get(service, username string) (string, error) {
	secret, err := keyring.Get(service, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%s %s: %w", service, username, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return secret, nil
}

// Set stores password for service and username
func (Keyring) Set(service, username, password string) error {
	if err := keyring.Set(service, username, password); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

// Lookup resolves the adapter credentials from store
func Lookup(store Store, service, username string) (Credentials, error) {
	password, err := store.Get(service, username)
	if err != nil {
		return Credentials{}, err
	}
	if password == "" {
		return Credentials{}, fmt.Errorf("%s %s: empty password: %w", service, username, ErrNotFound)
	}
	return Credentials{Username: username, Password: password}, nil
}
