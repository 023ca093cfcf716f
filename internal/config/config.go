package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// XDGName is the directory name under the XDG config home.
const XDGName = "richview"

// Config is the complete richview configuration.
type Config struct {
	Surface Surface `toml:"surface" yaml:"surface"`
	Sync    Sync    `toml:"sync" yaml:"sync"`
	Opener  Opener  `toml:"opener" yaml:"opener"`
	Logging Logging `toml:"logging" yaml:"logging"`
	Preview Preview `toml:"preview" yaml:"preview"`
	Theme   Theme   `toml:"theme" yaml:"theme"`
}

// Surface configures the rendered editor.
type Surface struct {
	// ID is written into disambiguated URIs as open-handler=<id>.
	ID string `toml:"id" yaml:"id" validate:"required,excludesall=&="`
}

// Sync configures content synchronization.
type Sync struct {
	// Debounce is the quiet period before surface edits are saved.
	Debounce Duration `toml:"debounce" yaml:"debounce" validate:"gt=0"`
}

// Opener configures handler scoring.
type Opener struct {
	OpenByDefault    bool     `toml:"openByDefault" yaml:"openByDefault"`
	Extensions       []string `toml:"extensions" yaml:"extensions" validate:"dive,required"`
	PredicateScript  string   `toml:"predicateScript" yaml:"predicateScript"`
	SoleHandlerScore float64  `toml:"soleHandlerScore" yaml:"soleHandlerScore" validate:"gt=0"`
}

// Logging configures the logger.
type Logging struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `toml:"format" yaml:"format" validate:"oneof=console json"`
}

// Preview configures the HTML preview server.
type Preview struct {
	Addr string `toml:"addr" yaml:"addr" validate:"required"`
}

// Theme selects the initial presentation theme.
type Theme struct {
	Name string `toml:"name" yaml:"name" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Surface: Surface{ID: "code-editor-ckeditor"},
		Sync:    Sync{Debounce: Duration(500 * time.Millisecond)},
		Opener: Opener{
			Extensions:       []string{".html", ".htm", ".md", ".markdown"},
			SoleHandlerScore: 200,
		},
		Logging: Logging{Level: "info", Format: "console"},
		Preview: Preview{Addr: "127.0.0.1:7420"},
		Theme:   Theme{Name: "dark"},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Set assigns value to the setting at the dotted path.
func (c *Config) Set(path, value string) error {
	var err error
	switch path {
	case "surface.id":
		c.Surface.ID = value
	case "sync.debounce":
		err = c.Sync.Debounce.UnmarshalText([]byte(value))
	case "opener.openByDefault":
		c.Opener.OpenByDefault, err = parseBool(value)
	case "opener.extensions":
		c.Opener.Extensions = splitList(value)
	case "opener.predicateScript":
		c.Opener.PredicateScript = value
	case "opener.soleHandlerScore":
		c.Opener.SoleHandlerScore, err = strconv.ParseFloat(value, 64)
	case "logging.level":
		c.Logging.Level = strings.ToLower(value)
	case "logging.format":
		c.Logging.Format = strings.ToLower(value)
	case "preview.addr":
		c.Preview.Addr = value
	case "theme.name":
		c.Theme.Name = value
	default:
		return &SettingError{Path: path, Err: ErrSettingNotFound}
	}
	if err != nil {
		return &SettingError{Path: path, Err: fmt.Errorf("%w: %v", ErrTypeMismatch, err)}
	}
	return nil
}

// Paths returns every settable path.
func Paths() []string {
	return []string{
		"surface.id",
		"sync.debounce",
		"opener.openByDefault",
		"opener.extensions",
		"opener.predicateScript",
		"opener.soleHandlerScore",
		"logging.level",
		"logging.format",
		"preview.addr",
		"theme.name",
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
