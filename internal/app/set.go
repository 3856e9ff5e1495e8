package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"localdocs/internal/domain"
	"localdocs/internal/store"
)

func newSetCmd(opts *options) *cobra.Command {
	var (
		name        string
		description string
		tags        string
	)

	cmd := &cobra.Command{
		Use:   "set <hash>",
		Short: "Set a document's name, description, or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") && !cmd.Flags().Changed("description") && !cmd.Flags().Changed("tags") {
				return fmt.Errorf("nothing to set: provide --name, --description, or --tags")
			}

			id := args[0]
			s, err := opts.openStore()
			if err != nil {
				return err
			}

			var applied []string
			err = s.Update(func(reg *store.Registry) error {
				doc, ok := reg.Documents[id]
				if !ok {
					return fmt.Errorf("%w: %s", store.ErrUnknownDocument, id)
				}
				if cmd.Flags().Changed("name") {
					doc.Name = domain.CleanName(name)
					applied = append(applied, fmt.Sprintf("name = %q", doc.GetName()))
				}
				if cmd.Flags().Changed("description") {
					doc.Description = domain.CleanDescription(description)
					applied = append(applied, fmt.Sprintf("description = %q", doc.GetDescription()))
				}
				if cmd.Flags().Changed("tags") {
					doc.Tags = domain.CleanTags(tags)
					applied = append(applied, fmt.Sprintf("tags = %v", doc.Tags))
				}
				reg.Documents[id] = doc
				return nil
			})
			if err != nil {
				return err
			}

			for _, change := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", change)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "document name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "document description")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "comma-separated tags")
	return cmd
}
