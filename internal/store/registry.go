// Package store persists the document registry and the downloaded content
// files. The registry is a JSON file replaced atomically on every save;
// loads go through a TTL cache with singleflight deduplication.
package store

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"localdocs/internal/domain"
)

// ConfigFileName is the registry file name, in the working directory or
// under ~/.localdocs.
const ConfigFileName = "localdocs.config.json"

//go:embed default_config.json
var defaultRegistry []byte

var ErrUnknownDocument = errors.New("unknown document")

// Registry is the on-disk shape of the document collection.
type Registry struct {
	StorageDirectory string                     `json:"storage_directory"`
	Documents        map[string]domain.Document `json:"documents"`
}

func (r Registry) clone() Registry {
	docs := make(map[string]domain.Document, len(r.Documents))
	for id, doc := range r.Documents {
		tags := make([]string, len(doc.Tags))
		copy(tags, doc.Tags)
		doc.Tags = tags
		docs[id] = doc
	}
	return Registry{StorageDirectory: r.StorageDirectory, Documents: docs}
}

// Store owns one registry file plus its content directory.
// Registry writes are serialized behind a mutex and an atomic file replace,
// so concurrent download operations interleave store calls safely.
type Store struct {
	path  string
	cache *Cache
	group singleflight.Group
	mu    sync.Mutex
}

// Open binds a store to a registry path. An empty explicitPath triggers
// discovery: ./localdocs.config.json when it exists, otherwise
// ~/.localdocs/localdocs.config.json. The parent directory is created; the
// file itself appears on first load.
func Open(explicitPath string, cache *Cache) (*Store, error) {
	path, err := discoverPath(explicitPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if cache == nil {
		cache = NewCache(DefaultCacheTTL)
	}
	return &Store{path: path, cache: cache}, nil
}

func discoverPath(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}

	local, err := filepath.Abs(ConfigFileName)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".localdocs", ConfigFileName), nil
}

// Path returns the absolute registry file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current registry, consulting the cache first. Concurrent
// cache misses collapse into a single disk read. A missing file yields the
// embedded default registry, which is written out immediately.
func (s *Store) Load() (Registry, error) {
	if reg, ok := s.cache.get(s.path); ok {
		return reg, nil
	}

	result, err, _ := s.group.Do(s.path, func() (any, error) {
		if reg, ok := s.cache.get(s.path); ok {
			return reg, nil
		}
		reg, err := s.loadFromDisk()
		if err != nil {
			return Registry{}, err
		}
		s.cache.put(s.path, reg)
		return reg, nil
	})
	if err != nil {
		return Registry{}, err
	}
	return result.(Registry).clone(), nil
}

func (s *Store) loadFromDisk() (Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Registry{}, fmt.Errorf("read registry %s: %w", s.path, err)
		}
		log.Info("No registry found, creating default", "path", s.path)
		if err := s.writeFile(defaultRegistry); err != nil {
			return Registry{}, err
		}
		data = defaultRegistry
	}

	reg, err := parseRegistry(data)
	if err != nil {
		return Registry{}, fmt.Errorf("parse registry %s: %w", s.path, err)
	}
	return reg, nil
}

// rawDocument tolerates registries written by older releases: tags may be
// missing, non-lists, or carry non-string members.
type rawDocument struct {
	URL         string            `json:"url"`
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Tags        []json.RawMessage `json:"tags"`
}

func parseRegistry(data []byte) (Registry, error) {
	var raw struct {
		StorageDirectory string                 `json:"storage_directory"`
		Documents        map[string]rawDocument `json:"documents"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Registry{}, err
	}

	reg := Registry{
		StorageDirectory: raw.StorageDirectory,
		Documents:        make(map[string]domain.Document, len(raw.Documents)),
	}
	if reg.StorageDirectory == "" {
		reg.StorageDirectory = "."
	}

	for id, doc := range raw.Documents {
		if !domain.ValidHashID(id) || doc.URL == "" {
			log.Warn("Dropping malformed registry entry", "id", id)
			continue
		}
		tags := make([]string, 0, len(doc.Tags))
		for _, rawTag := range doc.Tags {
			var tag string
			if err := json.Unmarshal(rawTag, &tag); err != nil || len(tag) > domain.MaxTagLength {
				continue
			}
			tags = append(tags, tag)
		}
		reg.Documents[id] = domain.Document{
			URL:         doc.URL,
			Name:        doc.Name,
			Description: doc.Description,
			Tags:        tags,
		}
	}

	return reg, nil
}

// Save replaces the registry file atomically and refreshes the cache.
func (s *Store) Save(reg Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(reg)
}

// Update applies one read-modify-write cycle under the store lock, so
// concurrent download operations cannot lose each other's registry entries.
func (s *Store) Update(fn func(reg *Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(&reg); err != nil {
		return err
	}
	return s.saveLocked(reg)
}

func (s *Store) saveLocked(reg Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := s.writeFile(append(data, '\n')); err != nil {
		return err
	}
	s.cache.put(s.path, reg)
	return nil
}

func (s *Store) writeFile(data []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// ContentDir resolves and creates the directory holding content files.
// "." means the registry's own directory; anything absolute or escaping it
// is refused.
func (s *Store) ContentDir() (string, error) {
	reg, err := s.Load()
	if err != nil {
		return "", err
	}

	base := filepath.Dir(s.path)
	storage := reg.StorageDirectory
	if storage == "" || storage == "." {
		return base, nil
	}
	if filepath.IsAbs(storage) || strings.Contains(storage, "..") {
		return "", fmt.Errorf("unsafe storage directory %q", storage)
	}

	dir := filepath.Join(base, storage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage directory: %w", err)
	}
	return dir, nil
}

// ContentPath returns the on-disk path of one document's content file.
func (s *Store) ContentPath(id string) (string, error) {
	dir, err := s.ContentDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, domain.FileName(id)), nil
}

// Get looks up one document by hash ID.
func (s *Store) Get(id string) (domain.Document, bool, error) {
	reg, err := s.Load()
	if err != nil {
		return domain.Document{}, false, err
	}
	doc, ok := reg.Documents[id]
	return doc, ok, nil
}

// All returns every document keyed by hash ID.
func (s *Store) All() (map[string]domain.Document, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return reg.Documents, nil
}

// Put inserts or replaces one registry entry.
func (s *Store) Put(id string, doc domain.Document) error {
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return s.Update(func(reg *Registry) error {
		reg.Documents[id] = doc
		return nil
	})
}

// Delete removes a document's registry entry and content file. A missing
// content file is tolerated; an unknown ID is ErrUnknownDocument.
func (s *Store) Delete(id string) (domain.Document, error) {
	path, err := s.ContentPath(id)
	if err != nil {
		return domain.Document{}, err
	}

	var doc domain.Document
	err = s.Update(func(reg *Registry) error {
		entry, ok := reg.Documents[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove content file: %w", err)
		}
		doc = entry
		delete(reg.Documents, id)
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// SaveContent writes a document's content file atomically. Only complete,
// successful fetches reach this point.
func (s *Store) SaveContent(id, text string) error {
	path, err := s.ContentPath(id)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write content file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace content file: %w", err)
	}
	return nil
}

// ReadContent returns a document's stored content.
func (s *Store) ReadContent(id string) (string, error) {
	path, err := s.ContentPath(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read content file: %w", err)
	}
	return string(data), nil
}
