package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
)

// KeyringService is the keyring service data source passwords are stored under.
const KeyringService = "insights-go"

// ResolvePassword fills ds.Password from the keyring when the data source
// asks for it.
func ResolvePassword(ds *database.Config) error {
	if !ds.PasswordFromKeyring {
		return nil
	}
	secret, err := keyring.Get(KeyringService, ds.Name)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("no keyring password stored for data source %s", ds.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to read keyring password of %s: %w", ds.Name, err)
	}
	ds.Password = secret
	return nil
}

// StorePassword saves the password of a data source in the keyring.
func StorePassword(name, password string) error {
	if err := keyring.Set(KeyringService, name, password); err != nil {
		return fmt.Errorf("failed to store keyring password of %s: %w", name, err)
	}
	return nil
}
