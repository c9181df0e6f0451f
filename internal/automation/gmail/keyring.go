package gmail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

// KeyringPrefix marks a token reference held in the system keyring rather
// than a file, e.g. "keyring:work-gmail".
const KeyringPrefix = "keyring:"

const keyringService = "outlookctl"

// openKeyring is replaced in tests.
var openKeyring = func() (keyring.Keyring, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.WinCredBackend,
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(home, ".outlookctl", "keyring"),
		FilePasswordFunc:         keyring.FixedStringPrompt("outlookctl-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func keyringKey(ref string) (string, bool) {
	return strings.CutPrefix(ref, KeyringPrefix)
}

// loadTokenData reads the stored token JSON from a file or the keyring.
func loadTokenData(ref string) ([]byte, error) {
	key, ok := keyringKey(ref)
	if !ok {
		return os.ReadFile(ref)
	}
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	item, err := ring.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting token %q: %w", key, err)
	}
	return item.Data, nil
}

func saveTokenData(ref string, data []byte) error {
	key, ok := keyringKey(ref)
	if !ok {
		return os.WriteFile(ref, data, 0o600)
	}
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: data, Label: "outlookctl Gmail token"}); err != nil {
		return fmt.Errorf("setting token %q: %w", key, err)
	}
	return nil
}
