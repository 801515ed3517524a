// Command screenshot-pro captures, annotates and stores screenshots.
package main

import (
	"context"
	"fmt"
	"os"

	"screenshot-pro/internal/cli"
	"screenshot-pro/internal/config"
	"screenshot-pro/internal/ocr"
	"screenshot-pro/internal/ocr/tesseract"
	"screenshot-pro/ui/annotator"
)

func main() {
	root := cli.NewRootCommand(cli.Deps{
		Annotate:      annotate,
		NewRecognizer: newRecognizer,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "screenshot-pro:", err)
		os.Exit(1)
	}
}

func annotate(ctx context.Context, env *cli.Env, id int64) error {
	return annotator.Run(ctx, env.Store, id, annotator.WithLogger(env.Logger))
}

func newRecognizer(cfg config.OCRConfig) (ocr.Recognizer, func() error, error) {
	eng, err := tesseract.NewEngine(cfg.Languages, tesseract.WithBinarize(cfg.Binarize))
	if err != nil {
		return nil, nil, err
	}
	return eng, eng.Close, nil
}
