package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"localdocs/internal/store"
)

func newUpdateCmd(opts *options) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "update [hash]",
		Short: "Re-download one document, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}

			var urls []string
			if len(args) == 1 {
				doc, ok, err := s.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", store.ErrUnknownDocument, args[0])
				}
				urls = []string{doc.URL}
			} else {
				docs, err := s.All()
				if err != nil {
					return err
				}
				for _, doc := range docs {
					urls = append(urls, doc.URL)
				}
				sort.Strings(urls)
			}

			if len(urls) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents to update")
				return nil
			}

			summary := opts.newBatch(s).Run(cmd.Context(), urls, async)
			fmt.Fprintf(cmd.OutOrStdout(), "Completed: %d/%d documents updated\n", summary.Succeeded, len(urls))
			if summary.Succeeded == 0 {
				return fmt.Errorf("no documents updated")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "update concurrently")
	return cmd
}
