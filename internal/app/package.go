package app

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"localdocs/internal/domain"
	"localdocs/internal/packaging"
)

func newPackageCmd(opts *options) *cobra.Command {
	var (
		format    string
		softLinks bool
		include   []string
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "package <name>",
		Short: "Bundle documents into a distributable directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgFormat, err := packaging.ParseFormat(format)
			if err != nil {
				return err
			}

			s, err := opts.openStore()
			if err != nil {
				return err
			}
			docs, err := s.All()
			if err != nil {
				return err
			}

			selected := docs
			if len(tags) > 0 {
				selected = domain.FilterByTags(docs, tags)
			}
			if len(include) > 0 {
				selected = intersectIDs(selected, include)
			}

			target, err := packaging.Package(s, packaging.Options{
				Name:      args[0],
				Docs:      selected,
				Format:    pkgFormat,
				SoftLinks: softLinks,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created package %s with %d documents\n", target, len(selected))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "toc", "package format: toc, claude, json")
	cmd.Flags().BoolVar(&softLinks, "soft-links", false, "reference live content files instead of copying")
	cmd.Flags().StringSliceVar(&include, "include", nil, "restrict to these document ids")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "restrict to documents with any of these tags")
	return cmd
}

// intersectIDs keeps the requested ids; unknown ones are warned about and
// packaging proceeds with the rest.
func intersectIDs(docs map[string]domain.Document, ids []string) map[string]domain.Document {
	selected := make(map[string]domain.Document, len(ids))
	var missing []string
	for _, id := range ids {
		doc, ok := docs[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		selected[id] = doc
	}
	if len(missing) > 0 {
		log.Warn("Skipping unknown document ids", "ids", missing)
	}
	return selected
}
