package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix starts every environment override. Nested keys are separated by
// a double underscore: QSYNC_CONNECTIONS__PROD__TOKEN.
const EnvPrefix = "QSYNC_"

// ErrNotFound is returned by LoadLocal and LoadGlobal when no file exists.
var ErrNotFound = errors.New("no config file")

var localNames = []string{".qsync.yml", ".qsync.yaml", "qsync.yml", "qsync.yaml"}

// Connection is one named platform endpoint.
type Connection struct {
	Host     string `koanf:"host"`
	Token    string `koanf:"token"`
	Version  string `koanf:"version"`
	Insecure bool   `koanf:"insecure"`
}

// Defaults hold values used when the matching flag is not given.
type Defaults struct {
	DateFormat    string        `koanf:"date_format"`
	RateLimit     float64       `koanf:"rate_limit"`
	SearchTimeout time.Duration `koanf:"search_timeout"`
	Timeout       time.Duration `koanf:"timeout"`
}

// FileConfig is the merged configuration.
type FileConfig struct {
	Connections map[string]Connection `koanf:"connections"`
	Queries     map[string]string     `koanf:"queries"`
	Defaults    Defaults              `koanf:"defaults"`

	// Path is the file the configuration was read from, empty when only the
	// environment contributed.
	Path string `koanf:"-"`
}

// LoadFile reads a YAML config file and overlays the environment.
func LoadFile(path string) (FileConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return FileConfig{}, &Error{Msg: fmt.Sprintf("cannot read config file %s", path), Err: err}
	}
	cfg, err := finish(k)
	cfg.Path = path
	return cfg, err
}

// LoadLocal searches dir for .qsync.yml, .qsync.yaml, qsync.yml and
// qsync.yaml, in that order.
func LoadLocal(dir string) (FileConfig, error) {
	for _, name := range localNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, ErrNotFound
}

// GlobalPath is $XDG_CONFIG_HOME/qsync/config.yml.
func GlobalPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = xdg.ConfigHome
	}
	return filepath.Join(base, "qsync", "config.yml")
}

// LoadGlobal loads the per-user config file.
func LoadGlobal() (FileConfig, error) {
	p := GlobalPath()
	if _, err := os.Stat(p); err != nil {
		return FileConfig{}, ErrNotFound
	}
	return LoadFile(p)
}

// Load resolves the configuration: an explicit path wins, then the local
// files in dir, then the global file. Without any file the environment alone
// is used.
func Load(explicit, dir string) (FileConfig, error) {
	if explicit != "" {
		return LoadFile(explicit)
	}
	cfg, err := LoadLocal(dir)
	if !errors.Is(err, ErrNotFound) {
		return cfg, err
	}
	cfg, err = LoadGlobal()
	if !errors.Is(err, ErrNotFound) {
		return cfg, err
	}
	return finish(koanf.New("."))
}

func finish(k *koanf.Koanf) (FileConfig, error) {
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return FileConfig{}, &Error{Msg: "cannot read environment", Err: err}
	}

	var cfg FileConfig
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, conf); err != nil {
		return FileConfig{}, &Error{Msg: "invalid configuration", Err: err}
	}
	return cfg, nil
}

// ResolveConnection returns the named connection. Names match case
// insensitively.
func (fc FileConfig) ResolveConnection(name string) (Connection, error) {
	for k, c := range fc.Connections {
		if !strings.EqualFold(k, name) {
			continue
		}
		if c.Host == "" || c.Token == "" {
			return Connection{}, Errorf("connection %q needs both host and token", name)
		}
		return c, nil
	}
	return Connection{}, Errorf("connection %q is not defined%s", name, fc.where())
}

// ResolveNamedQuery returns the query text stored under name.
func (fc FileConfig) ResolveNamedQuery(name string) (string, error) {
	if q, ok := fc.Queries[name]; ok && strings.TrimSpace(q) != "" {
		return q, nil
	}
	for k, q := range fc.Queries {
		if strings.EqualFold(k, name) && strings.TrimSpace(q) != "" {
			return q, nil
		}
	}
	return "", Errorf("query %q is not defined%s", name, fc.where())
}

func (fc FileConfig) where() string {
	if fc.Path == "" {
		return " (no config file found)"
	}
	return " in " + fc.Path
}
