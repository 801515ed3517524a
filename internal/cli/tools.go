package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"screenshot-pro/internal/ocr"
	"screenshot-pro/internal/store"
	"screenshot-pro/internal/submit"
)

func newAnnotateCommand(env *Env, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate <id>",
		Short: "Open the annotation window for a screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Annotate == nil {
				return errors.New("annotation window not available in this build")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return deps.Annotate(cmd.Context(), env, id)
		},
	}
}

func newOCRCommand(env *Env, deps Deps) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "ocr <id>",
		Short: "Extract the text of a screenshot into a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.NewRecognizer == nil {
				return errors.New("OCR not available in this build")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, release, err := deps.NewRecognizer(env.Config.OCR)
			if err != nil {
				return err
			}
			defer release()

			x := ocr.NewExtractor(rec, env.Store, env.Logger)
			if printOnly {
				_, text, err := x.Text(cmd.Context(), id)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(env.Out, text)
				return err
			}
			note, err := x.ToNote(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(env.Out, "saved note %d\n", note.ID)
			return err
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the text instead of saving a note")
	return cmd
}

func newSubmitCommand(env *Env) *cobra.Command {
	var (
		tab      tabFlags
		text     string
		endpoint string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post the newest screenshot and a note to the configured API endpoint",
		Long: "submit sends the newest screenshot with --text (or pending selected text)\n" +
			"to the stored API endpoint. --endpoint stores a new endpoint first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if endpoint != "" {
				if err := store.NewSettingsRepo(env.Store).SetAPIEndpoint(ctx, endpoint); err != nil {
					return err
				}
			}
			if text == "" {
				sel, ok, err := store.TakeSelectedText(ctx, env.Store)
				if err != nil {
					return err
				}
				if ok {
					text = sel.Text
				}
			}
			c := submit.NewClient(
				submit.WithHTTPClient(&http.Client{Timeout: env.Config.Submit.Timeout()}),
				submit.WithLogger(env.Logger),
			)
			page := submit.Page{URL: tab.url, Title: tab.title}
			if err := c.SubmitLatest(ctx, env.Store, page, text); err != nil {
				return err
			}
			_, err := fmt.Fprintln(env.Out, submit.MsgSubmitted)
			return err
		},
	}
	tab.register(cmd)
	cmd.Flags().StringVar(&text, "text", "", "text sent with the screenshot")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "store this API endpoint before submitting")
	return cmd
}
