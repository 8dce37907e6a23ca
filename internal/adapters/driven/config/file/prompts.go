package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/prompts"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves prompt templates from <dir>/<name>.txt, falling back
// to the built-in text when a file is missing or blank. Edited files are
// picked up on the next Load.
type PromptStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
	size    int64
}

// NewPromptStore creates a store over dir. It does no I/O.
// If dir is empty, defaults to ~/.licita/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".licita", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	text, err := s.loadFile(name)
	if err == nil && text != "" {
		return text, nil
	}
	if def, ok := prompts.Default(name); ok {
		return def, nil
	}
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	return "", fmt.Errorf("load prompt %q: %w", name, err)
}

// loadFile reads name from disk unless the cached copy still matches the
// file's size and modification time.
func (s *PromptStore) loadFile(name string) (string, error) {
	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		s.forget(name)
		return "", err
	}

	s.mu.Lock()
	cached, ok := s.cache[name]
	s.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime(), size: info.Size()}
	s.mu.Unlock()
	return text, nil
}

func (s *PromptStore) forget(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// Seed creates the prompt directory and writes every built-in template
// that has no file yet, plus a README. Existing files are left alone.
// It returns the names of the files it wrote.
func (s *PromptStore) Seed() ([]string, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("create prompt directory: %w", err)
	}

	var written []string
	for _, name := range prompts.Names() {
		text, _ := prompts.Default(name)
		ok, err := writeIfAbsent(s.path(name), text+"\n")
		if err != nil {
			return written, fmt.Errorf("write prompt %q: %w", name, err)
		}
		if ok {
			written = append(written, name+".txt")
		}
	}

	ok, err := writeIfAbsent(filepath.Join(s.dir, "README.md"), promptReadme())
	if err != nil {
		return written, fmt.Errorf("write prompt README: %w", err)
	}
	if ok {
		written = append(written, "README.md")
	}
	return written, nil
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func writeIfAbsent(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

func promptReadme() string {
	var b strings.Builder
	b.WriteString("# Prompts do licita\n\n")
	b.WriteString("Cada arquivo .txt desta pasta substitui o prompt padrão de mesmo nome.\n")
	b.WriteString("As alterações valem no próximo comando. Apague um arquivo (ou deixe-o vazio)\n")
	b.WriteString("para voltar ao texto padrão.\n\n")

	b.WriteString("## Arquivos\n\n")
	for _, name := range prompts.Names() {
		fmt.Fprintf(&b, "- `%s.txt`\n", name)
	}

	b.WriteString("\n## Marcadores\n\n")
	b.WriteString("Os marcadores entre chaves duplas são substituídos em cada chamada:\n\n")
	for _, m := range [][2]string{
		{"markers", "os rótulos de classificação (IRREGULAR, ALERTA, CONFORME)"},
		{"query", "o tópico e a pergunta do protocolo"},
		{"context", "os trechos jurídicos recuperados, com [FONTE: ...]"},
		{"document", "o texto do documento auditado"},
		{"document_type", "o tipo do documento, usado no resumo final"},
		{"findings", "as constatações resumidas, usadas no resumo final"},
	} {
		fmt.Fprintf(&b, "- `{{%s}}`: %s\n", m[0], m[1])
	}
	b.WriteString("\nMantenha os marcadores ao personalizar um prompt.\n")
	return b.String()
}
