package render

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/text"

	"go-live-rst/internal/contracts"
)

func TestRender_LineAnnotations(t *testing.T) {
	r := NewRenderer()
	src := []byte("# Title\n\nfirst paragraph\n\n- item\n")

	got, err := r.Render(context.Background(), "", src)
	require.NoError(t, err)
	assert.Contains(t, got, `<h1 id="title" data-source-line="1">Title</h1>`)
	assert.Contains(t, got, `<p data-source-line="3">first paragraph</p>`)
	assert.Contains(t, got, `data-source-line="5"`)
}

func TestRender_LocalDestinations(t *testing.T) {
	r := NewRenderer()
	src := []byte("![logo](img/logo.png) [guide](guide.md) [web](https://example.com) [top](#top)\n")

	got, err := r.ConvertFragment(src, "/notes/readme.md")
	require.NoError(t, err)
	assert.Contains(t, got, `src="`+contracts.AssetURL("/notes/img/logo.png")+`"`)
	assert.Contains(t, got, `loading="lazy"`)
	assert.Contains(t, got, `href="`+contracts.AssetURL("/notes/guide.md")+`"`)
	assert.Contains(t, got, `href="https://example.com"`)
	assert.Contains(t, got, `href="#top"`)
}

func TestRender_NoSourcePathKeepsRelative(t *testing.T) {
	r := NewRenderer()
	got, err := r.ConvertFragment([]byte("![x](x.png)\n"), "")
	require.NoError(t, err)
	assert.Contains(t, got, `src="x.png"`)
}

func TestRender_HighlightedCode(t *testing.T) {
	r := NewRenderer()
	src := []byte("text\n\n```go\nfunc main() {}\n```\n")
	got, err := r.ConvertFragment(src, "")
	require.NoError(t, err)
	assert.Contains(t, got, `<div data-source-line="3">`)
	assert.Contains(t, got, `class="chroma"`)
}

func TestRenderShell(t *testing.T) {
	shell := RenderShell()
	assert.NotContains(t, shell, "{{CONTENT}}")
	assert.True(t, strings.Contains(shell, `new WebSocket`))
}

func TestSourceLine(t *testing.T) {
	r := text.NewReader([]byte("a\nb\nc"))
	assert.Equal(t, 1, sourceLine(r, -4))
	assert.Equal(t, 2, sourceLine(r, 2))
	assert.Equal(t, 3, sourceLine(r, 99))
}

func TestAssetDestination(t *testing.T) {
	for _, raw := range []string{"", "  ", "HTTPS://x", "mailto:a@b", "#x", "//cdn/x.js", contracts.AssetPrefix + "abc"} {
		_, ok := assetDestination([]byte(raw), "/d")
		assert.False(t, ok, raw)
	}
	got, ok := assetDestination([]byte("/abs/a.png"), "")
	assert.True(t, ok)
	assert.Equal(t, contracts.AssetURL("/abs/a.png"), got)
}

func TestName(t *testing.T) {
	assert.Equal(t, ProviderName, NewRenderer().Name())
}
