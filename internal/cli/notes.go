package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"screenshot-pro/internal/app"
	"screenshot-pro/internal/store"
)

func newNoteCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage saved text notes",
	}
	cmd.AddCommand(
		newNoteAddCommand(env),
		newNoteListCommand(env),
		newNoteEditCommand(env),
		newNoteDeleteCommand(env),
		newNoteSelectCommand(env),
	)
	return cmd
}

func newNoteAddCommand(env *Env) *cobra.Command {
	var tab tabFlags
	var pending bool
	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Save a text note",
		Long:  "add saves the given text. With --pending the text picked from the context menu is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")
			url := tab.url
			if pending {
				sel, ok, err := store.TakeSelectedText(ctx, env.Store)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("no selected text pending")
				}
				text = sel.Text
				if url == "" {
					url = sel.TabURL
				}
			}
			n, err := store.NewNotes(env.Store).Add(ctx, text, url, tab.title)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(env.Out, "saved note %d\n", n.ID)
			return err
		},
	}
	tab.register(cmd)
	cmd.Flags().BoolVar(&pending, "pending", false, "use text selected through the context menu")
	return cmd
}

func newNoteListCommand(env *Env) *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List text notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			notes, err := store.NewNotes(env.Store).List(ctx)
			if err != nil {
				return err
			}
			filter, err := store.LoadFilter(ctx, env.Store)
			if err != nil {
				return err
			}
			notes = store.FilterNotes(notes, filter, pageURL)

			tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tURL\tCONTENT")
			for _, n := range notes {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", n.ID, n.Timestamp, n.URL, firstLine(n.Content, 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "current page, used by the domain filter")
	return cmd
}

func firstLine(s string, limit int) string {
	line, _, more := strings.Cut(s, "\n")
	if r := []rune(line); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	if more {
		return line + " …"
	}
	return line
}

func newNoteEditCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Remove a note and print its content for rewriting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			content, err := store.NewNotes(env.Store).Edit(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(env.Out, content)
			return err
		},
	}
}

func newNoteDeleteCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a text note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return store.NewNotes(env.Store).Delete(cmd.Context(), id)
		},
	}
}

// newNoteSelectCommand is the "Add selected text to screenshot" context menu
// entry: the text is parked for the next note or submission.
func newNoteSelectCommand(env *Env) *cobra.Command {
	var tab tabFlags
	cmd := &cobra.Command{
		Use:   "select <text...>",
		Short: "Hand selected text over as if picked from the context menu",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus := env.newBus()
			bg := app.NewBackground(env.newHost("", tab.tab(), nil), bus, env.Store, app.WithLogger(env.Logger))
			return bg.OnContextMenuClicked(cmd.Context(), app.MenuAddTextInput, strings.Join(args, " "), tab.tab())
		},
	}
	tab.register(cmd)
	return cmd
}
