package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// scanCommand creates the scan command, which lists candidate photos.
func (c *CLI) scanCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the photos in a directory, newest first",
		Long: `List the photos in a directory, newest first.

On a terminal the listing is a table; when piped, one path per line so the
output can feed 'photoaffix affix'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			photos, err := source.Scan(dir)
			if err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "scan %s", dir)
			}
			if limit > 0 && limit < len(photos) {
				photos = photos[:limit]
			}
			if !stdoutIsTerminal() {
				for _, p := range photos {
					fmt.Println(p.URI)
				}
				return nil
			}
			if len(photos) == 0 {
				printInfo("No photos in %s", dir)
				return nil
			}
			fmt.Println(scanTable(photos).Render())
			if len(photos) >= 2 {
				printNewline()
				printNextStep("Affix the newest two", fmt.Sprintf("photoaffix affix --dir %s -n 2", dir))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "list at most N photos (0 = all)")
	return cmd
}

func scanTable(photos []source.Photo) tableRenderer {
	t := newTable("#", "Photo", "Modified")
	for i, p := range photos {
		t.Row(strconv.Itoa(i+1), filepath.Base(p.URI), p.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return t
}

// stdoutIsTerminal reports whether stdout is a character device.
func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
