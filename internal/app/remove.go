package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hash>",
		Short: "Remove a document and its content file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}

			doc, err := s.Delete(args[0])
			if err != nil {
				return err
			}

			name := doc.GetName()
			if name == "" {
				name = args[0]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
			return nil
		},
	}
}
