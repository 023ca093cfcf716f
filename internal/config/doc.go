// Package config loads richview settings.
//
// Settings come from three layers, lowest priority first:
//
//  1. built-in defaults (Default)
//  2. a TOML or YAML file, chosen by extension; by default
//     $XDG_CONFIG_HOME/richview/config.toml
//  3. RICHVIEW_* environment variables
//
// The merged configuration is validated before use.
//
// Example config.toml:
//
//	[sync]
//	debounce = "250ms"
//
//	[opener]
//	openByDefault = false
//	extensions = [".html", ".md"]
//	predicateScript = "~/.config/richview/accept.lua"
//
//	[logging]
//	level = "debug"
//	format = "console"
package config
