// Package render converts Markdown buffers in-process with goldmark.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"

	"go-live-rst/internal/contracts"
)

// ProviderName identifies this renderer in render messages.
const ProviderName = "markdown"

//go:embed page.html
var pageTemplate string

// Renderer is the Markdown preview provider.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(
			alertcallouts.AlertCallouts,
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Linkify,
			highlighting.NewHighlighting(
				highlighting.WithWrapperRenderer(wrapCodeBlock),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(lineAnnotator{}, 100),
				util.Prioritized(assetRewriter{}, 200),
			),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)}
}

func (r *Renderer) Name() string { return ProviderName }

// Render converts a Markdown buffer. Rendering is in-process and does not
// block on ctx.
func (r *Renderer) Render(_ context.Context, path string, source []byte) (string, error) {
	return r.ConvertFragment(source, path)
}

// ConvertFragment returns the HTML fragment for source. Block elements carry
// the source line they start on. When sourcePath is set, local image and
// link destinations point at the asset route.
func (r *Renderer) ConvertFragment(source []byte, sourcePath string) (string, error) {
	pc := parser.NewContext()
	pc.Set(sourcePathKey, sourcePath)

	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf, parser.WithContext(pc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderShell returns the empty page the browser loads before the first
// websocket update.
func RenderShell() string {
	return strings.Replace(pageTemplate, "{{CONTENT}}", "", 1)
}

// wrapCodeBlock moves the line attribute of a highlighted block onto a
// wrapping div, since chroma drops node attributes.
func wrapCodeBlock(w util.BufWriter, cb highlighting.CodeBlockContext, entering bool) {
	if cb == nil || cb.Attributes() == nil {
		return
	}
	v, ok := cb.Attributes().GetString(contracts.LineAttribute)
	if !ok {
		return
	}

	var line string
	switch typed := v.(type) {
	case string:
		line = typed
	case []byte:
		line = string(typed)
	}
	if line == "" {
		return
	}

	if entering {
		_, _ = w.WriteString(`<div ` + contracts.LineAttribute + `="` + line + `">`)
		return
	}
	_, _ = w.WriteString("</div>")
}

// sourceLine converts a byte offset into reader to a 1-based line.
func sourceLine(reader text.Reader, offset int) int {
	src := reader.Source()
	offset = min(max(offset, 0), len(src))
	return bytes.Count(src[:offset], []byte{'\n'}) + 1
}
