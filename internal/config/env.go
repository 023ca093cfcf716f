package config

import (
	"sort"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RICHVIEW_"

// EnvLoader applies environment variables to a Config.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "RICHVIEW_")
	mapping map[string]string // Env var -> config path
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "RICHVIEW_").
func NewEnvLoader(prefix string) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
	}
	for _, path := range Paths() {
		l.mapping[l.pathToEnv(path)] = path
	}
	// Short aliases
	l.mapping[prefix+"LOG_LEVEL"] = "logging.level"
	l.mapping[prefix+"LOG_FORMAT"] = "logging.format"
	l.mapping[prefix+"THEME"] = "theme.name"
	return l
}

// Variables returns the recognized variable names, sorted.
func (l *EnvLoader) Variables() []string {
	names := make([]string, 0, len(l.mapping))
	for name := range l.mapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply sets every mapped variable found by lookup on cfg. Variables are
// applied in sorted order, so a setting named twice resolves the same way
// every time.
func (l *EnvLoader) Apply(cfg *Config, lookup func(string) (string, bool)) error {
	for _, name := range l.Variables() {
		val, ok := lookup(name)
		if !ok {
			continue
		}
		path := l.mapping[name]
		if err := cfg.Set(path, val); err != nil {
			return &SettingError{Path: path, Source: name, Err: unwrapSetting(err)}
		}
	}
	return nil
}

// pathToEnv converts opener.openByDefault to RICHVIEW_OPENER_OPEN_BY_DEFAULT.
func (l *EnvLoader) pathToEnv(path string) string {
	var b strings.Builder
	b.WriteString(l.prefix)
	for i, r := range path {
		switch {
		case r == '.':
			b.WriteByte('_')
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteString(strings.ToUpper(string(r)))
		}
	}
	return b.String()
}

func unwrapSetting(err error) error {
	if se, ok := err.(*SettingError); ok {
		return se.Err
	}
	return err
}
