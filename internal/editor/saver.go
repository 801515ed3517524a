package editor

import (
	"context"

	"screenshot-pro/internal/messaging"
	"screenshot-pro/internal/store"
)

// Saver writes an annotated image over the stored screenshot id.
type Saver interface {
	SaveAnnotated(ctx context.Context, id int64, dataURL string) error
}

// StoreSaver writes straight to the screenshot repository.
type StoreSaver struct {
	Shots *store.Screenshots
}

func (s StoreSaver) SaveAnnotated(ctx context.Context, id int64, dataURL string) error {
	_, err := s.Shots.ReplaceImage(ctx, id, dataURL)
	return err
}

// MessageSaver asks the background service to do the write. Context names
// the editor endpoint the request comes from.
type MessageSaver struct {
	Sender  messaging.Sender
	Context string
}

func (s MessageSaver) SaveAnnotated(ctx context.Context, id int64, dataURL string) error {
	resp, err := s.Sender.Send(ctx, messaging.Background, messaging.Request{
		From: messaging.Origin{Context: s.Context},
		Message: messaging.Message{
			Action:           messaging.ActionSaveAnnotatedScreenshot,
			ScreenshotID:     id,
			AnnotatedDataURL: dataURL,
		},
	})
	if err != nil {
		return err
	}
	return resp.Err()
}
