package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up under the XDG config home.
const DefaultFileName = "config.toml"

// DefaultPath returns $XDG_CONFIG_HOME/richview/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, XDGName, DefaultFileName)
}

// Loader builds a Config from defaults, a file and the environment.
type Loader struct {
	path      string
	explicit  bool
	env       *EnvLoader
	readFile  func(string) ([]byte, error)
	lookupEnv func(string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPath sets the config file. A missing explicit file is an error,
// while a missing default file is not.
func WithPath(path string) LoaderOption {
	return func(l *Loader) {
		if path != "" {
			l.path = path
			l.explicit = true
		}
	}
}

// WithLookupEnv replaces os.LookupEnv, mostly for tests.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = fn
	}
}

// WithReadFile replaces os.ReadFile, mostly for tests.
func WithReadFile(fn func(string) ([]byte, error)) LoaderOption {
	return func(l *Loader) {
		l.readFile = fn
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		path:      DefaultPath(),
		env:       NewEnvLoader(EnvPrefix),
		readFile:  os.ReadFile,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load is shorthand for NewLoader(WithPath(path)).Load().
func Load(path string) (*Config, error) {
	return NewLoader(WithPath(path)).Load()
}

// Path returns the config file path after home directory expansion.
func (l *Loader) Path() (string, error) {
	return homedir.Expand(l.path)
}

// Load reads the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if err := l.loadFile(&cfg); err != nil {
		return nil, err
	}
	if err := l.env.Apply(&cfg, l.lookupEnv); err != nil {
		return nil, err
	}

	script, err := homedir.Expand(cfg.Opener.PredicateScript)
	if err != nil {
		return nil, &SettingError{Path: "opener.predicateScript", Err: err}
	}
	cfg.Opener.PredicateScript = script

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadFile(cfg *Config) error {
	path, err := l.Path()
	if err != nil {
		return fmt.Errorf("expanding config path %s: %w", l.path, err)
	}

	data, err := l.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if l.explicit {
				return fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return Parse(path, data, cfg)
}

// Parse decodes data into cfg. The format follows the extension of path:
// .toml, or .yaml and .yml.
func Parse(path string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}
