package repository

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/utils"
)

// MaterialRegistry is the operator-maintained list of accepted raw-material
// names, one per line in a text file. A missing file reads as an empty list
// and is created on first load.
type MaterialRegistry struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewMaterialRegistry(path string, logger *slog.Logger) *MaterialRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaterialRegistry{path: path, logger: logger}
}

// Load returns the names in file order, blank lines dropped.
func (m *MaterialRegistry) Load() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// Save replaces the whole list.
func (m *MaterialRegistry) Save(names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(names)
}

// Add appends name unless it is blank or already listed. It reports whether
// the list changed.
func (m *MaterialRegistry) Add(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, common.NewAppError("VALIDATION_ERROR", "material name is required", common.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.load()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return false, nil
		}
	}
	return true, m.save(append(names, name))
}

// Remove deletes every line equal to name and reports whether any was found.
func (m *MaterialRegistry) Remove(name string) (bool, error) {
	name = strings.TrimSpace(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.load()
	if err != nil {
		return false, err
	}
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(names) {
		return false, nil
	}
	return true, m.save(kept)
}

// ParseMaterials splits newline-delimited text into trimmed, non-blank names.
func ParseMaterials(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (m *MaterialRegistry) load() ([]string, error) {
	b, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Info("materials.create", "path", m.path)
		if err := m.save(nil); err != nil {
			return nil, err
		}
		return []string{}, nil
	}
	if err != nil {
		return nil, common.NewAppError("MATERIALS_ERROR", "read materials", errors.Join(common.ErrStorage, err))
	}
	names := ParseMaterials(string(b))
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (m *MaterialRegistry) save(names []string) error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
	}
	var b strings.Builder
	for _, n := range names {
		if s := strings.TrimSpace(n); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	if err := utils.WriteFileAtomic(m.path, []byte(b.String()), 0o644); err != nil {
		return common.NewAppError("MATERIALS_ERROR", "write materials", errors.Join(common.ErrStorage, err))
	}
	return nil
}
