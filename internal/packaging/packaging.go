// Package packaging bundles stored documents into distributable directories.
package packaging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"localdocs/internal/domain"
	"localdocs/internal/store"
	"localdocs/internal/support"
)

// Format selects the bundle layout.
type Format string

const (
	FormatTOC    Format = "toc"
	FormatClaude Format = "claude"
	FormatJSON   Format = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatTOC, FormatClaude, FormatJSON:
		return Format(raw), nil
	default:
		return "", fmt.Errorf("unknown package format %q (toc, claude, json)", raw)
	}
}

// Options describes one packaging run.
type Options struct {
	Name      string
	Docs      map[string]domain.Document
	Format    Format
	SoftLinks bool

	// BaseDir is where the package directory is created; defaults to the
	// working directory.
	BaseDir string
}

// Package builds one bundle directory and returns its path. The target must
// not already exist; a half-built directory is removed again when packaging
// fails midway.
func Package(s *store.Store, opts Options) (string, error) {
	if err := domain.ValidatePackageName(opts.Name); err != nil {
		return "", err
	}
	if len(opts.Docs) == 0 {
		return "", fmt.Errorf("no documents to package")
	}

	base := opts.BaseDir
	if base == "" {
		base = "."
	}
	target := filepath.Join(base, opts.Name)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("package directory %q already exists", target)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create package directory: %w", err)
	}

	if err := build(s, target, opts); err != nil {
		os.RemoveAll(target)
		return "", err
	}

	log.Info("Package created", "name", opts.Name, "format", string(opts.Format), "documents", len(opts.Docs))
	return target, nil
}

func build(s *store.Store, target string, opts Options) error {
	ids := sortedIDs(opts.Docs)

	if opts.Format == FormatJSON {
		return writeJSON(s, target, ids, opts.Docs)
	}

	refs := make(map[string]string, len(ids))
	for _, id := range ids {
		if opts.SoftLinks {
			path, err := s.ContentPath(id)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			refs[id] = abs
			continue
		}

		src, err := s.ContentPath(id)
		if err != nil {
			return err
		}
		fileName := domain.FileName(id)
		if err := support.CopyFile(src, filepath.Join(target, fileName)); err != nil {
			return fmt.Errorf("copy content for %s: %w", id, err)
		}
		refs[id] = fileName
	}

	var mainFile, content string
	switch opts.Format {
	case FormatTOC:
		mainFile = "index.md"
		content = renderTOC(ids, opts.Docs, refs)
	case FormatClaude:
		mainFile = "claude-refs.md"
		content = renderClaude(ids, opts.Docs, refs)
	}
	if err := os.WriteFile(filepath.Join(target, mainFile), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mainFile, err)
	}

	if !opts.SoftLinks {
		return writeFilteredRegistry(target, ids, opts.Docs)
	}
	return nil
}

func renderTOC(ids []string, docs map[string]domain.Document, refs map[string]string) string {
	var b strings.Builder
	b.WriteString("# Documentation Index\n\n")
	for _, id := range ids {
		doc := docs[id]
		name := doc.GetName()
		if name == "" {
			name = "Document " + id
		}
		desc := doc.GetDescription()
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&b, "- [%s](%s) - %s\n", name, refs[id], desc)
	}
	return b.String()
}

func renderClaude(ids []string, docs map[string]domain.Document, refs map[string]string) string {
	var b strings.Builder
	b.WriteString("# Documentation References\n\n")
	for _, id := range ids {
		doc := docs[id]
		name := doc.GetName()
		if name == "" {
			name = id
		}
		desc := doc.GetDescription()
		if desc == "" {
			desc = name + " documentation"
		}
		fmt.Fprintf(&b, "See @%s for %s.\n", refs[id], desc)
	}
	return b.String()
}

type jsonDocument struct {
	ID          string   `json:"id"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	File        string   `json:"file"`
	Content     string   `json:"content"`
}

func writeJSON(s *store.Store, target string, ids []string, docs map[string]domain.Document) error {
	out := struct {
		Documents []jsonDocument `json:"documents"`
	}{Documents: make([]jsonDocument, 0, len(ids))}

	for _, id := range ids {
		doc := docs[id]
		content, err := s.ReadContent(id)
		if err != nil {
			content = fmt.Sprintf("Error reading content: %v", err)
		}
		out.Documents = append(out.Documents, jsonDocument{
			ID:          id,
			Name:        doc.Name,
			Description: doc.Description,
			URL:         doc.URL,
			Tags:        doc.Tags,
			File:        domain.FileName(id),
			Content:     content,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal package data: %w", err)
	}
	path := filepath.Join(target, "data.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write data.json: %w", err)
	}
	return nil
}

// writeFilteredRegistry drops a registry listing only the packaged docs, so
// the bundle directory works as a standalone localdocs collection.
func writeFilteredRegistry(target string, ids []string, docs map[string]domain.Document) error {
	reg := store.Registry{
		StorageDirectory: ".",
		Documents:        make(map[string]domain.Document, len(ids)),
	}
	for _, id := range ids {
		reg.Documents[id] = docs[id]
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal package registry: %w", err)
	}
	path := filepath.Join(target, store.ConfigFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write package registry: %w", err)
	}
	return nil
}

func sortedIDs(docs map[string]domain.Document) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
