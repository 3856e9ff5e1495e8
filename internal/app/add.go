package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newAddCmd(opts *options) *cobra.Command {
	var (
		fromFile string
		async    bool
	)

	cmd := &cobra.Command{
		Use:   "add [urls...]",
		Short: "Download documents and add them to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if len(urls) == 0 {
				var err error
				urls, err = readURLList(fromFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if len(urls) == 0 {
				log.Warn("No URLs to add")
				return nil
			}

			s, err := opts.openStore()
			if err != nil {
				return err
			}

			summary := opts.newBatch(s).Run(cmd.Context(), urls, async)
			fmt.Fprintf(cmd.OutOrStdout(), "Completed: %d/%d documents downloaded\n", summary.Succeeded, len(urls))
			if summary.Succeeded == 0 {
				return fmt.Errorf("no documents downloaded")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "read URLs from a file, one per line")
	cmd.Flags().BoolVar(&async, "async", false, "download concurrently")
	return cmd
}

// readURLList parses one URL per line, skipping blanks and # comments.
// Lines that are not http(s) URLs are warned about and skipped.
func readURLList(path string, stdin io.Reader) ([]string, error) {
	var source io.Reader = stdin
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open URL file: %w", err)
		}
		defer file.Close()
		source = file
	}

	var urls []string
	scanner := bufio.NewScanner(source)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			log.Warn("Skipping non-HTTP(S) line", "line", line)
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read URL list: %w", err)
	}
	return urls, nil
}
