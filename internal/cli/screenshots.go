package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"screenshot-pro/internal/raster"
	"screenshot-pro/internal/store"
)

func newListCommand(env *Env) *cobra.Command {
	var (
		pageURL  string
		domain   bool
		thumbDir string
		thumbMax int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored screenshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			list, err := store.NewScreenshots(env.Store).List(ctx)
			if err != nil {
				return err
			}
			filter, err := store.LoadFilter(ctx, env.Store)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("domain") {
				filter = store.FilterAll
				if domain {
					filter = store.FilterDomain
				}
				if err := store.SaveFilter(ctx, env.Store, filter); err != nil {
					return err
				}
			}
			list = store.FilterScreenshots(list, filter, pageURL)

			if thumbDir != "" {
				if err := writeThumbnails(list, thumbDir, thumbMax); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tTIME\tSIZE\tTITLE\tURL")
			for _, s := range list {
				size := "?"
				if img, _, err := raster.DecodeDataURL(s.DataURL); err == nil {
					b := img.Bounds()
					size = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Type, s.Timestamp, size, s.Title, s.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "current page, used by the domain filter")
	cmd.Flags().BoolVar(&domain, "domain", false, "only show screenshots from the --url domain (remembered)")
	cmd.Flags().StringVar(&thumbDir, "thumbnails", "", "write a PNG thumbnail per screenshot into this directory")
	cmd.Flags().IntVar(&thumbMax, "thumbnail-size", raster.DefaultThumbnailSize, "longest thumbnail edge in pixels")
	return cmd
}

func writeThumbnails(list []store.Screenshot, dir string, maxDim int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range list {
		img, _, err := raster.DecodeDataURL(s.DataURL)
		if err != nil {
			return fmt.Errorf("screenshot %d: %w", s.ID, err)
		}
		data, err := raster.EncodePNG(raster.Thumbnail(img, maxDim))
		if err != nil {
			return err
		}
		name := filepath.Join(dir, strconv.FormatInt(s.ID, 10)+".png")
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newExportCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> [file]",
		Short: "Write a screenshot to an image file",
		Long:  "export writes the stored image unchanged. The default file name is screenshot-<id>.png.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := store.NewScreenshots(env.Store).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			data, mime, err := raster.DataURLBytes(s.DataURL)
			if err != nil {
				return err
			}
			path := fmt.Sprintf("screenshot-%d.png", id)
			if len(args) == 2 {
				path = args[1]
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			_, err = fmt.Fprintf(env.Out, "wrote %s (%s, %d bytes)\n", path, mime, len(data))
			return err
		},
	}
}

func newDeleteCommand(env *Env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete screenshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			shots := store.NewScreenshots(env.Store)
			if all {
				if len(args) > 0 {
					return fmt.Errorf("--all takes no ids")
				}
				return shots.Clear(cmd.Context())
			}
			if len(args) == 0 {
				return fmt.Errorf("give at least one id, or --all")
			}
			for _, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				if err := shots.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(env.Out, "deleted %d\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every screenshot")
	return cmd
}
