// Package file provides filesystem-backed configuration adapters.
//
// ConfigStore persists settings as TOML in config.toml. PromptStore serves
// editable prompt templates from the prompts/ directory.
package file
