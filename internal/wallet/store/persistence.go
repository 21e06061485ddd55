package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"mediguard/internal/credential"
)

// Persistence loads and saves the whole credential list.
type Persistence interface {
	Load(ctx context.Context) ([]credential.Credential, error)
	Save(ctx context.Context, creds []credential.Credential) error
}

// FilePersistence keeps credentials as a JSON array in one file. Saves write
// a temporary sibling and rename it over the target.
type FilePersistence struct {
	path string
}

func NewFilePersistence(path string) *FilePersistence {
	return &FilePersistence{path: path}
}

func (p *FilePersistence) Path() string { return p.path }

// Load returns an empty list when the file does not exist yet.
func (p *FilePersistence) Load(_ context.Context) ([]credential.Credential, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read wallet file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var creds []credential.Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode wallet file: %w", err)
	}
	return creds, nil
}

func (p *FilePersistence) Save(_ context.Context, creds []credential.Credential) error {
	if creds == nil {
		creds = []credential.Credential{}
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create wallet dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".wallet-*.json")
	if err != nil {
		return fmt.Errorf("create temp wallet file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write wallet file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync wallet file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close wallet file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod wallet file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replace wallet file: %w", err)
	}
	return nil
}

// MemoryPersistence keeps the last saved list in memory.
type MemoryPersistence struct {
	mu    sync.Mutex
	creds []credential.Credential
	saves int
}

func NewMemoryPersistence(initial ...credential.Credential) *MemoryPersistence {
	return &MemoryPersistence{creds: initial}
}

func (p *MemoryPersistence) Load(_ context.Context) ([]credential.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]credential.Credential(nil), p.creds...), nil
}

func (p *MemoryPersistence) Save(_ context.Context, creds []credential.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = append([]credential.Credential(nil), creds...)
	p.saves++
	return nil
}

// Saves reports how many times Save was called.
func (p *MemoryPersistence) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}
