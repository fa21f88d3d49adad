package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/antibyte/calcvault/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	GalleryCmd = &cobra.Command{
		Use:   "gallery",
		Short: "Manage the pictures of an account",
	}

	galleryListCmd = &cobra.Command{
		Use:     "ls <username>",
		Aliases: []string{"list"},
		Short:   "List pictures, newest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := lookupUser(cmd, svc, args[0])
			if err != nil {
				return err
			}
			images, err := svc.gallery.List(cmd.Context(), u.UID)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Sprint("no pictures"))
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tSIZE\tTYPE\tBYTES")
			for _, img := range images {
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%d\n", img.ID, formatTime(img.CreatedAt), img.Width, img.Height, img.MIME, img.Size)
			}
			return w.Flush()
		},
	}

	galleryAddCmd = &cobra.Command{
		Use:   "add <username> <file>...",
		Short: "Upload pictures",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := lookupUser(cmd, svc, args[0])
			if err != nil {
				return err
			}

			files := args[1:]
			s, done := startSpinner(fmt.Sprintf("Uploading %d file(s)...", len(files)), cmd.OutOrStdout())
			for i, path := range files {
				Console.Debugf("Reading %s", path)
				content, err := os.ReadFile(path)
				if err != nil {
					s.FinalMSG = failure("Could not read " + ui.Path.Sprint(path))
					done()
					return err
				}
				if _, err := svc.gallery.Upload(cmd.Context(), u.UID, content); err != nil {
					s.FinalMSG = failure(fmt.Sprintf("Upload of %s failed after %d of %d", ui.Path.Sprint(filepath.Base(path)), i, len(files)))
					done()
					return err
				}
				Console.Infof("Uploaded %s", path)
			}
			s.FinalMSG = success(fmt.Sprintf("Uploaded %d picture(s) for %s", len(files), ui.Highlight.Sprint(u.Username)))
			done()
			return nil
		},
	}

	galleryRemoveCmd = &cobra.Command{
		Use:   "rm <username> <id>",
		Short: "Delete a picture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := lookupUser(cmd, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.gallery.Delete(cmd.Context(), u.UID, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("Deleted "+ui.Highlight.Sprint(args[1])))
			return nil
		},
	}
)

func init() {
	GalleryCmd.AddCommand(galleryListCmd)
	GalleryCmd.AddCommand(galleryAddCmd)
	GalleryCmd.AddCommand(galleryRemoveCmd)
}
