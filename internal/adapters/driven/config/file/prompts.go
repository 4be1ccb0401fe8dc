package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptDirName is the prompt directory inside the data directory.
const PromptDirName = "prompts"

// PromptStore loads prompt templates from {name}.txt files, falling back to
// the built-in templates. The directory and default files are written on
// first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	defaults  map[string]string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a prompt store rooted at promptDir. An empty
// promptDir means ~/.docintel/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, PromptDirName)
	}

	return &PromptStore{
		promptDir: promptDir,
		defaults:  driven.DefaultPrompts(),
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := s.defaults[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if def, ok := s.defaults[name]; ok {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range s.defaults {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.writeReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	// Leading newlines belong to appended templates.
	return strings.TrimRight(string(data), " \t\r\n"), nil
}

func (s *PromptStore) writeReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	names := make([]string, 0, len(s.defaults))
	for name := range s.defaults {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# docintel prompts\n\n")
	b.WriteString("Edit these templates to change how answers are generated.\n")
	b.WriteString("Changes apply to the next command, or after restarting the TUI or MCP server.\n\n")
	b.WriteString("## Files\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- `%s.txt`\n", name)
	}
	b.WriteString("\n## Placeholders\n\n")
	b.WriteString("- `{{question}}` and `{{context}}` in grounded_answer\n")
	b.WriteString("- `{{schema}}` in schema_instructions\n\n")
	b.WriteString("Delete a file to restore its default.\n")
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
