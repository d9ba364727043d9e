package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type templateConnection struct {
	Host     string `yaml:"host"`
	Token    string `yaml:"token"`
	Version  string `yaml:"version"`
	Insecure bool   `yaml:"insecure"`
}

type templateDefaults struct {
	DateFormat    string  `yaml:"date_format"`
	RateLimit     float64 `yaml:"rate_limit"`
	SearchTimeout string  `yaml:"search_timeout"`
	Timeout       string  `yaml:"timeout"`
}

type templateFile struct {
	Connections map[string]templateConnection `yaml:"connections"`
	Queries     map[string]string             `yaml:"queries"`
	Defaults    templateDefaults              `yaml:"defaults"`
}

// Template returns a starter configuration document.
func Template(name, host string) ([]byte, error) {
	if name == "" {
		name = "default"
	}
	if host == "" {
		host = "siem.example.com"
	}
	t := templateFile{
		Connections: map[string]templateConnection{
			name: {Host: host, Token: "REPLACE-WITH-SEC-TOKEN", Version: "11.0", Insecure: false},
		},
		Queries: map[string]string{
			"failed_logins": "SELECT sourceip, username, QIDNAME(qid) FROM events WHERE category=3008 LAST 1 HOURS",
		},
		Defaults: templateDefaults{
			DateFormat:    "%Y-%m-%d %H:%M:%S",
			SearchTimeout: "30m",
			Timeout:       "2m",
		},
	}
	return yaml.Marshal(&t)
}

// WriteTemplate writes Template to path, refusing to replace an existing
// file unless force is set. The file holds a token, so it is created 0600.
func WriteTemplate(path, name, host string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	b, err := Template(name, host)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, b, 0o600)
}
