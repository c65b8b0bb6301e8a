package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
)

// tokenStore keeps the operator credential between runs in a 0600 file.
type tokenStore struct {
	path string
}

func defaultTokenStore() (tokenStore, error) {
	if p := os.Getenv("CRM_CREDENTIAL_FILE"); p != "" {
		return tokenStore{path: p}, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return tokenStore{}, fmt.Errorf("locate config dir: %w", err)
	}
	return tokenStore{path: filepath.Join(dir, "muvance-crm", "credential.json")}, nil
}

func (t tokenStore) Save(cred apiclient.Credential) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o600)
}

// Load returns an empty credential when nothing is stored.
func (t tokenStore) Load() (apiclient.Credential, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return apiclient.Credential{}, nil
	}
	if err != nil {
		return apiclient.Credential{}, fmt.Errorf("read credential: %w", err)
	}
	var cred apiclient.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return apiclient.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}

func (t tokenStore) Clear() error {
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
