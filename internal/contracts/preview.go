package contracts

import (
	"encoding/base64"
	"path/filepath"
)

const (
	// MessageTypeRender updates the browser with rendered HTML.
	MessageTypeRender = "render"
	// MessageTypeCursor updates the browser cursor/scroll position.
	MessageTypeCursor = "cursor"
	// MessageTypeGoToLine asks Neovim to move its cursor to a source line.
	MessageTypeGoToLine = "go_to_line"
)

// LineAttribute marks rendered elements with the source line they start on.
const LineAttribute = "data-source-line"

// AssetPrefix is the route serving local files referenced by a preview.
const AssetPrefix = "/@mdfs/"

// AssetURL returns the preview URL for an absolute local path.
func AssetURL(path string) string {
	return AssetPrefix + base64.RawURLEncoding.EncodeToString([]byte(filepath.Clean(path)))
}

// AssetPath decodes an id produced by AssetURL. ok is false for anything
// that is not an absolute path.
func AssetPath(id string) (string, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", false
	}
	p := filepath.Clean(string(decoded))
	if p == "." || !filepath.IsAbs(p) {
		return "", false
	}
	return p, true
}

// IncomingMessage is the minimal envelope used to route browser messages.
type IncomingMessage struct {
	Type string
}

// GoToLineMessage requests a cursor jump in the editor.
type GoToLineMessage struct {
	Type string `json:"type"`
	Line int    `json:"line"`
}

// RenderMessage carries rendered HTML and revision metadata to the browser.
type RenderMessage struct {
	Type     string `json:"type"`
	HTML     string `json:"html"`
	Filename string `json:"filename"`
	Provider string `json:"provider"`
	Failed   bool   `json:"failed"`
	Rev      uint64 `json:"rev"`
}

// CursorMessage carries cursor position and revision metadata to the browser.
type CursorMessage struct {
	Type string `json:"type"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
	Rev  uint64 `json:"rev"`
}
