package packaging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"localdocs/internal/domain"
	"localdocs/internal/store"
)

func packagingFixture(t *testing.T) (*store.Store, map[string]domain.Document) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), store.ConfigFileName), store.NewCache(store.DefaultCacheTTL))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	name := "API Guide"
	desc := "Endpoint reference"
	docs := map[string]domain.Document{}

	for _, entry := range []struct {
		url     string
		doc     domain.Document
		content string
	}{
		{"https://example.com/api", domain.Document{URL: "https://example.com/api", Name: &name, Description: &desc, Tags: []string{"api"}}, "# API\n"},
		{"https://example.com/cli", domain.Document{URL: "https://example.com/cli", Tags: []string{}}, "# CLI\n"},
	} {
		id := domain.HashID(entry.url)
		if err := s.Put(id, entry.doc); err != nil {
			t.Fatalf("put %s: %v", entry.url, err)
		}
		if err := s.SaveContent(id, entry.content); err != nil {
			t.Fatalf("save content %s: %v", entry.url, err)
		}
		docs[id] = entry.doc
	}
	return s, docs
}

func TestPackageTOC(t *testing.T) {
	s, docs := packagingFixture(t)
	base := t.TempDir()

	target, err := Package(s, Options{Name: "bundle", Docs: docs, Format: FormatTOC, BaseDir: base})
	if err != nil {
		t.Fatalf("Package returned %v", err)
	}

	index, err := os.ReadFile(filepath.Join(target, "index.md"))
	if err != nil {
		t.Fatalf("read index.md: %v", err)
	}
	if !strings.HasPrefix(string(index), "# Documentation Index\n") {
		t.Fatalf("index.md header missing: %q", index)
	}
	if !strings.Contains(string(index), "[API Guide](") || !strings.Contains(string(index), "- Endpoint reference") {
		t.Fatalf("index.md missing named entry: %q", index)
	}
	if !strings.Contains(string(index), "Document "+domain.HashID("https://example.com/cli")) {
		t.Fatalf("index.md missing fallback name: %q", index)
	}
	if !strings.Contains(string(index), "No description") {
		t.Fatalf("index.md missing fallback description: %q", index)
	}

	// Copy mode brings the content files and a standalone registry along.
	for id := range docs {
		if _, err := os.Stat(filepath.Join(target, domain.FileName(id))); err != nil {
			t.Fatalf("content file for %s not copied: %v", id, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(target, store.ConfigFileName))
	if err != nil {
		t.Fatalf("package registry missing: %v", err)
	}
	var reg store.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		t.Fatalf("package registry invalid: %v", err)
	}
	if reg.StorageDirectory != "." || len(reg.Documents) != len(docs) {
		t.Fatalf("package registry = %+v, want all %d docs in .", reg, len(docs))
	}
}

func TestPackageClaudeSoftLinks(t *testing.T) {
	s, docs := packagingFixture(t)
	base := t.TempDir()

	target, err := Package(s, Options{Name: "refs", Docs: docs, Format: FormatClaude, SoftLinks: true, BaseDir: base})
	if err != nil {
		t.Fatalf("Package returned %v", err)
	}

	refs, err := os.ReadFile(filepath.Join(target, "claude-refs.md"))
	if err != nil {
		t.Fatalf("read claude-refs.md: %v", err)
	}
	if !strings.HasPrefix(string(refs), "# Documentation References\n") {
		t.Fatalf("claude-refs.md header missing: %q", refs)
	}
	if !strings.Contains(string(refs), "See @/") {
		t.Fatalf("soft-links mode should reference absolute paths: %q", refs)
	}

	// Nothing copied, no registry written.
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatalf("read package dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("soft-links package has %d entries, want only the main file", len(entries))
	}
}

func TestPackageJSON(t *testing.T) {
	s, docs := packagingFixture(t)
	base := t.TempDir()

	target, err := Package(s, Options{Name: "export", Docs: docs, Format: FormatJSON, BaseDir: base})
	if err != nil {
		t.Fatalf("Package returned %v", err)
	}

	data, err := os.ReadFile(filepath.Join(target, "data.json"))
	if err != nil {
		t.Fatalf("read data.json: %v", err)
	}

	var out struct {
		Documents []struct {
			ID      string `json:"id"`
			URL     string `json:"url"`
			File    string `json:"file"`
			Content string `json:"content"`
		} `json:"documents"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("data.json invalid: %v", err)
	}
	if len(out.Documents) != 2 {
		t.Fatalf("data.json has %d documents, want 2", len(out.Documents))
	}
	// Ascending hash-ID order, contents embedded.
	if out.Documents[0].ID > out.Documents[1].ID {
		t.Fatalf("documents out of order: %s before %s", out.Documents[0].ID, out.Documents[1].ID)
	}
	for _, doc := range out.Documents {
		if doc.Content == "" {
			t.Fatalf("document %s has no embedded content", doc.ID)
		}
	}
}

func TestPackageRejectsBadInput(t *testing.T) {
	s, docs := packagingFixture(t)
	base := t.TempDir()

	if _, err := Package(s, Options{Name: "../escape", Docs: docs, Format: FormatTOC, BaseDir: base}); err == nil {
		t.Fatal("Package accepted a traversal name")
	}
	if _, err := Package(s, Options{Name: "empty", Docs: nil, Format: FormatTOC, BaseDir: base}); err == nil {
		t.Fatal("Package accepted an empty document set")
	}

	if _, err := Package(s, Options{Name: "dup", Docs: docs, Format: FormatTOC, BaseDir: base}); err != nil {
		t.Fatalf("first package: %v", err)
	}
	if _, err := Package(s, Options{Name: "dup", Docs: docs, Format: FormatTOC, BaseDir: base}); err == nil {
		t.Fatal("Package overwrote an existing directory")
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"toc", "claude", "json"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) = %v, want nil", valid, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat accepted an unknown format")
	}
}
