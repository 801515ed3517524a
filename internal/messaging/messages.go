// Package messaging carries request/response messages between execution
// contexts: the background service, page contexts and editor windows.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"

	"screenshot-pro/pkg/geometry"
)

// Action names a message type.
type Action string

const (
	// Sent to a page context.
	ActionStartAreaCapture Action = "startAreaCapture"
	ActionCropImage        Action = "cropImage"
	ActionShowNotification Action = "showNotification"

	// Sent to the background service.
	ActionCaptureArea             Action = "captureArea"
	ActionSaveScreenshot          Action = "saveScreenshot"
	ActionCaptureTab              Action = "captureTab"
	ActionOpenAnnotationPopup     Action = "openAnnotationPopup"
	ActionSaveAnnotatedScreenshot Action = "saveAnnotatedScreenshot"
)

// Well-known endpoint names.
const (
	Background = "background"
)

// PageTarget returns the endpoint name of the page context in tab id.
func PageTarget(tabID int) string {
	return fmt.Sprintf("tab:%d", tabID)
}

// Message is the wire form of every request. Only the fields the action uses
// are set.
type Message struct {
	Action Action `json:"action"`

	Area             *geometry.Rect  `json:"area,omitempty"`
	DevicePixelRatio float64         `json:"devicePixelRatio,omitempty"`
	DataURL          string          `json:"dataUrl,omitempty"`
	Message          string          `json:"message,omitempty"`
	ScreenshotID     int64           `json:"screenshotId,omitempty"`
	AnnotatedDataURL string          `json:"annotatedDataUrl,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
}

// Origin describes who sent a request. TabID is zero when the sender is not
// a page.
type Origin struct {
	Context  string `json:"context"`
	TabID    int    `json:"tabId,omitempty"`
	WindowID int    `json:"windowId,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Request is a message together with its sender.
type Request struct {
	From    Origin  `json:"from"`
	Message Message `json:"message"`
}

// Response is what every request gets back.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK is the successful response.
var OK = Response{Success: true}

// Failure builds a failed response from err.
func Failure(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// ErrHandler is wrapped by Response.Err for failed responses.
var ErrHandler = errors.New("handler failed")

// Err returns nil for a successful response and an error carrying the
// handler's message otherwise.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrHandler, r.Error)
}
