package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/aguiargov/licita/internal/adapters/driven/storage/memory"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFile is the settings file name inside the config directory.
const ConfigFile = "config.toml"

// ConfigStore persists settings to a TOML file. Dotted keys are written as
// tables, so "llm.provider" lands under [llm]. Reads are served from memory.
type ConfigStore struct {
	values  *memory.ConfigStore
	writeMu sync.Mutex
	path    string
}

// NewConfigStore opens (or prepares) config.toml in configDir.
// If configDir is empty, defaults to ~/.licita.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".licita")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		path: filepath.Join(configDir, ConfigFile),
	}
	values, err := readConfigFile(s.path)
	if err != nil {
		return nil, err
	}
	s.values = memory.NewConfigStoreFrom(values)
	return s, nil
}

func (s *ConfigStore) Get(key string) (any, bool)  { return s.values.Get(key) }
func (s *ConfigStore) GetString(key string) string { return s.values.GetString(key) }
func (s *ConfigStore) GetInt(key string) int       { return s.values.GetInt(key) }
func (s *ConfigStore) GetBool(key string) bool     { return s.values.GetBool(key) }

// Path returns the settings file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// Set stores value and rewrites the file. A failed write leaves the
// previous value in place.
func (s *ConfigStore) Set(key string, value any) error {
	return s.mutate(func() error { return s.values.Set(key, value) })
}

// Unset removes key and rewrites the file.
func (s *ConfigStore) Unset(key string) error {
	if _, ok := s.Get(key); !ok {
		return nil
	}
	return s.mutate(func() error { return s.values.Unset(key) })
}

func (s *ConfigStore) mutate(change func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	before := s.values.Values()
	if err := change(); err != nil {
		return err
	}
	if err := writeConfigFile(s.path, s.values.Values()); err != nil {
		s.values.Replace(before)
		return err
	}
	return nil
}

func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	flat := make(map[string]any)
	flatten(tree, "", flat)
	return flat, nil
}

// writeConfigFile replaces path through a temp file so a crash never
// leaves a half-written config behind.
func writeConfigFile(path string, values map[string]any) error {
	tree, err := nest(values)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func flatten(tree map[string]any, prefix string, out map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, k, out)
			continue
		}
		out[k] = v
	}
}

// nest turns dotted keys back into tables. A key that is both a value and
// a table prefix ("llm" and "llm.model") cannot be encoded.
func nest(flat map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for i, part := range parts[:len(parts)-1] {
			next, exists := table[part]
			if !exists {
				sub := make(map[string]any)
				table[part] = sub
				table = sub
				continue
			}
			sub, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("setting %q conflicts with %q", key, strings.Join(parts[:i+1], "."))
			}
			table = sub
		}
		leaf := parts[len(parts)-1]
		if _, taken := table[leaf]; taken {
			return nil, fmt.Errorf("setting %q conflicts with a table of the same name", key)
		}
		table[leaf] = flat[key]
	}
	return root, nil
}
