// Package gencache persists a digest of the inputs that produced a generated
// document so an unchanged project can skip regeneration entirely. The cache
// is advisory: any read or decode failure is treated as a miss and the
// document is rebuilt from scratch.
package gencache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// SchemaVersion is bumped whenever the cache layout or the meaning of the
// inputs digest changes. Entries written by other versions never validate.
const SchemaVersion = 1

// Cache records one generation run: a digest of everything that influenced
// the output and the path the document was written to.
type Cache struct {
	V          int    `json:"v"`
	InputsHash string `json:"inputsHash"`
	Output     string `json:"output"`
}

// New creates a cache entry for a completed run.
func New(inputsHash, output string) *Cache {
	return &Cache{
		V:          SchemaVersion,
		InputsHash: inputsHash,
		Output:     output,
	}
}

// CachePath returns where the entry for the given output document lives.
// An empty dir selects the default .typewire directory next to the output.
func CachePath(dir, outputPath string) string {
	if dir == "" {
		dir = filepath.Join(filepath.Dir(outputPath), ".typewire")
	}
	return filepath.Join(dir, filepath.Base(outputPath)+".cache")
}

// Load reads a cache entry. Any failure (missing file, bad JSON, wrong
// shape) returns nil so the caller falls back to a full regeneration.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.V <= 0 || c.InputsHash == "" {
		return nil
	}
	return &c
}

// Save writes the entry atomically: marshal to a temp file in the same
// directory, then rename over the destination.
func (c *Cache) Save(path string) error {
	data, err := json.Marshal(c, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing cache: %w", err)
	}
	return nil
}

// Delete removes the entry. Missing files are not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsValid reports whether the cached run still stands for the given inputs
// digest. The output document must also still exist on disk; a deleted
// document always forces a rebuild.
func (c *Cache) IsValid(inputsHash string) bool {
	if c == nil || c.V != SchemaVersion {
		return false
	}
	if c.InputsHash == "" || c.InputsHash != inputsHash {
		return false
	}
	if c.Output == "" {
		return false
	}
	if _, err := os.Stat(c.Output); err != nil {
		return false
	}
	return true
}

// HashInputs digests one generation run: a seed describing the invocation
// (symbol name, document info, tool version) followed by the content of
// every input file in the order given. Unreadable files contribute a
// sentinel so their appearance or disappearance changes the digest.
func HashInputs(seed string, files []string) string {
	h := sha256.New()
	io.WriteString(h, seed)
	for _, path := range files {
		io.WriteString(h, "\x00")
		io.WriteString(h, path)
		io.WriteString(h, "\x00")
		data, err := os.ReadFile(path)
		if err != nil {
			io.WriteString(h, "unreadable")
			continue
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
