// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt templates with embedded defaults
//
// LoadEnv reads a .env file into the process environment before settings
// are resolved, so API keys can live beside the project instead of in
// config.toml.
package file
