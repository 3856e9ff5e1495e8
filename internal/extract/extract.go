// Package extract filters, sorts, and renders the document collection.
package extract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"localdocs/internal/domain"
)

// ValidFields is the selectable column set, in default output order.
var ValidFields = []string{"id", "name", "description", "tags", "url"}

const (
	colWidth    = 20
	truncateAt  = 18
	truncatedTo = 15
)

// Options drives one extraction run. Zero value means: no filters, all
// fields, table format, sorted by id.
type Options struct {
	Tags         []string
	HasTags      bool
	NoTags       bool
	NameContains string
	DescContains string

	SortBy  string
	Reverse bool
	Limit   int

	Fields    []string
	Format    string
	Quiet     bool
	CountOnly bool
	Output    string
}

type row struct {
	id  string
	doc domain.Document
}

// Run applies filters and renders the result to stdout or Options.Output.
func Run(docs map[string]domain.Document, opts Options, stdout io.Writer) error {
	fields, err := resolveFields(opts.Fields)
	if err != nil {
		return err
	}
	if opts.HasTags && opts.NoTags {
		return fmt.Errorf("--has-tags and --no-tags are mutually exclusive")
	}

	rows := filter(docs, opts)

	out := stdout
	if opts.Output != "" {
		file, err := openOutput(opts.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	if opts.CountOnly {
		fmt.Fprintf(out, "%d\n", len(rows))
		return nil
	}

	sortRows(rows, opts.SortBy, opts.Reverse)
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}

	switch opts.Format {
	case "", "table":
		renderTable(out, rows, fields, opts.Quiet)
		return nil
	case "json":
		return renderJSON(out, rows, fields)
	case "csv":
		return renderCSV(out, rows, fields, opts.Quiet)
	case "ids":
		for _, r := range rows {
			fmt.Fprintln(out, r.id)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (table, json, csv, ids)", opts.Format)
	}
}

func resolveFields(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return ValidFields, nil
	}
	valid := make(map[string]struct{}, len(ValidFields))
	for _, f := range ValidFields {
		valid[f] = struct{}{}
	}
	for _, f := range requested {
		if _, ok := valid[f]; !ok {
			return nil, fmt.Errorf("unknown field %q (valid: %s)", f, strings.Join(ValidFields, ", "))
		}
	}
	return requested, nil
}

func openOutput(path string) (*os.File, error) {
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("unsafe output path %q", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return file, nil
}

func filter(docs map[string]domain.Document, opts Options) []row {
	selected := docs
	if len(opts.Tags) > 0 {
		selected = domain.FilterByTags(docs, opts.Tags)
	}

	rows := make([]row, 0, len(selected))
	for id, doc := range selected {
		if opts.HasTags && !doc.HasTags() {
			continue
		}
		if opts.NoTags && doc.HasTags() {
			continue
		}
		if opts.NameContains != "" &&
			!strings.Contains(strings.ToLower(doc.GetName()), strings.ToLower(opts.NameContains)) {
			continue
		}
		if opts.DescContains != "" &&
			!strings.Contains(strings.ToLower(doc.GetDescription()), strings.ToLower(opts.DescContains)) {
			continue
		}
		rows = append(rows, row{id: id, doc: doc})
	}
	return rows
}

func sortRows(rows []row, sortBy string, reverse bool) {
	key := func(r row) string { return r.id }
	switch sortBy {
	case "", "id":
	case "name":
		key = func(r row) string { return strings.ToLower(r.doc.GetName()) }
	case "url":
		key = func(r row) string { return r.doc.URL }
	case "tags":
		key = func(r row) string { return strings.Join(r.doc.Tags, ",") }
	}

	sort.Slice(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if ki == kj {
			return rows[i].id < rows[j].id
		}
		if reverse {
			return ki > kj
		}
		return ki < kj
	})
}

// ValidSortKey reports whether the --sort-by value is known.
func ValidSortKey(key string) bool {
	switch key {
	case "", "id", "name", "url", "tags":
		return true
	}
	return false
}

func fieldValue(r row, field string) string {
	switch field {
	case "id":
		return r.id
	case "name":
		return r.doc.GetName()
	case "description":
		return r.doc.GetDescription()
	case "tags":
		return strings.Join(r.doc.Tags, ",")
	case "url":
		return r.doc.URL
	}
	return ""
}

func renderTable(out io.Writer, rows []row, fields []string, quiet bool) {
	if !quiet {
		var header, rule strings.Builder
		for _, field := range fields {
			fmt.Fprintf(&header, "%-*s", colWidth, strings.ToUpper(field))
			fmt.Fprintf(&rule, "%-*s", colWidth, strings.Repeat("-", len(field)))
		}
		fmt.Fprintln(out, strings.TrimRight(header.String(), " "))
		fmt.Fprintln(out, strings.TrimRight(rule.String(), " "))
	}

	for _, r := range rows {
		var line strings.Builder
		for _, field := range fields {
			value := fieldValue(r, field)
			if len(value) > truncateAt {
				value = value[:truncatedTo] + "..."
			}
			fmt.Fprintf(&line, "%-*s", colWidth, value)
		}
		fmt.Fprintln(out, strings.TrimRight(line.String(), " "))
	}

	if !quiet {
		fmt.Fprintf(out, "\nTotal: %d documents\n", len(rows))
	}
}

func renderJSON(out io.Writer, rows []row, fields []string) error {
	items := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		item := map[string]any{"id": r.id}
		for _, field := range fields {
			switch field {
			case "id":
			case "tags":
				item["tags"] = r.doc.Tags
			default:
				item[field] = fieldValue(r, field)
			}
		}
		items = append(items, item)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func renderCSV(out io.Writer, rows []row, fields []string, quiet bool) error {
	w := csv.NewWriter(out)
	if !quiet {
		if err := w.Write(fields); err != nil {
			return err
		}
	}
	for _, r := range rows {
		record := make([]string, len(fields))
		for i, field := range fields {
			record[i] = fieldValue(r, field)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
