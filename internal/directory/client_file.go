package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
	"github.com/samply/directory-sync-service-sub000/pkg/platform/sentinel"
)

// FileClient writes the payloads that would go to the Directory as JSON files
// instead, for offline inspection and test runs against an empty registry.
// Reads behave like an empty Directory: no collections, no facts, no biobanks
// being found is expected and handled upstream as a partial-merge skip.
type FileClient struct {
	dir string

	mu         sync.Mutex
	factBlocks map[string]int
}

// NewFile creates a file-output client writing into dir.
func NewFile(dir string) *FileClient {
	return &FileClient{dir: dir, factBlocks: make(map[string]int)}
}

func (c *FileClient) Login(context.Context) error {
	return os.MkdirAll(c.dir, 0o755)
}

func (c *FileClient) GetCollections(context.Context, string, []string) ([]CollectionGet, error) {
	return nil, nil
}

func (c *FileClient) PutCollections(_ context.Context, countryCode string, collections []CollectionPut) error {
	name := fmt.Sprintf("collections-%s.json", countryCode)
	return c.write(name, collections)
}

func (c *FileClient) PutFacts(_ context.Context, countryCode string, facts []domain.Fact) error {
	c.mu.Lock()
	c.factBlocks[countryCode]++
	block := c.factBlocks[countryCode]
	c.mu.Unlock()

	name := fmt.Sprintf("facts-%s-%03d.json", countryCode, block)
	return c.write(name, facts)
}

func (c *FileClient) DeleteFacts(context.Context, string, []string) error {
	return nil
}

func (c *FileClient) FactIDPage(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func (c *FileClient) GetBiobank(_ context.Context, id string) (*Biobank, error) {
	return nil, fmt.Errorf("biobank %s: file output has no registry state: %w", id, sentinel.ErrNotFound)
}

func (c *FileClient) write(name string, payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
