package store

import (
	"context"
	"encoding/json"
)

// ActionTextSelected marks selected text waiting to be picked up by the panel.
const ActionTextSelected = "textSelected"

// SelectedText is the text handed from a context menu click to the panel.
type SelectedText struct {
	Text       string
	TabURL     string
	LastAction string
}

// PutSelectedText stores text chosen from the context menu.
func PutSelectedText(ctx context.Context, kv KV, text, tabURL string) error {
	err := kv.Set(ctx, map[string]any{
		KeySelectedText: text,
		KeyTabURL:       tabURL,
		KeyLastAction:   ActionTextSelected,
	})
	if err != nil {
		return storageErr("save selected text", err)
	}
	return nil
}

// TakeSelectedText returns pending selected text and clears it. ok is false
// when nothing is pending.
func TakeSelectedText(ctx context.Context, kv KV) (sel SelectedText, ok bool, err error) {
	values, err := kv.Get(ctx, KeySelectedText, KeyTabURL, KeyLastAction)
	if err != nil {
		return SelectedText{}, false, storageErr("load selected text", err)
	}
	decode := func(key string) string {
		var s string
		if raw, found := values[key]; found {
			_ = json.Unmarshal(raw, &s)
		}
		return s
	}
	sel = SelectedText{
		Text:       decode(KeySelectedText),
		TabURL:     decode(KeyTabURL),
		LastAction: decode(KeyLastAction),
	}
	if sel.Text == "" || sel.LastAction != ActionTextSelected {
		return SelectedText{}, false, nil
	}
	if err := kv.Remove(ctx, KeySelectedText, KeyLastAction); err != nil {
		return SelectedText{}, false, storageErr("clear selected text", err)
	}
	return sel, true, nil
}
