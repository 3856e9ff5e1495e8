package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"localdocs/internal/extract"
)

func newExtractCmd(opts *options) *cobra.Command {
	var (
		exOpts extract.Options
		fields []string
		tags   []string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "List and filter documents in table, JSON, CSV, or id form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !extract.ValidSortKey(exOpts.SortBy) {
				return fmt.Errorf("unknown sort key %q (id, name, url, tags)", exOpts.SortBy)
			}
			if cmd.Flags().Changed("limit") && exOpts.Limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			exOpts.Fields = fields
			exOpts.Tags = tags

			s, err := opts.openStore()
			if err != nil {
				return err
			}
			docs, err := s.All()
			if err != nil {
				return err
			}

			return extract.Run(docs, exOpts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&exOpts.Format, "format", "table", "output format: table, json, csv, ids")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to include: id, name, description, tags, url")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "keep documents with any of these tags")
	cmd.Flags().BoolVar(&exOpts.HasTags, "has-tags", false, "keep only tagged documents")
	cmd.Flags().BoolVar(&exOpts.NoTags, "no-tags", false, "keep only untagged documents")
	cmd.Flags().StringVar(&exOpts.NameContains, "name-contains", "", "substring match on name")
	cmd.Flags().StringVar(&exOpts.DescContains, "desc-contains", "", "substring match on description")
	cmd.Flags().StringVar(&exOpts.SortBy, "sort-by", "id", "sort key: id, name, url, tags")
	cmd.Flags().BoolVar(&exOpts.Reverse, "reverse", false, "reverse the sort order")
	cmd.Flags().IntVar(&exOpts.Limit, "limit", 0, "maximum number of rows")
	cmd.Flags().BoolVar(&exOpts.Quiet, "quiet", false, "omit headers and footers")
	cmd.Flags().BoolVar(&exOpts.CountOnly, "count-only", false, "print only the matching count")
	cmd.Flags().StringVar(&exOpts.Output, "output", "", "write to a file instead of stdout")
	return cmd
}
