package render

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	extensionast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"go-live-rst/internal/contracts"
)

var sourcePathKey = parser.NewContextKey()

// lineAnnotator tags block nodes with the line they start on, used by the
// browser for cursor sync.
type lineAnnotator struct{}

func (lineAnnotator) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || !annotated(n.Kind()) {
			return ast.WalkContinue, nil
		}
		if offset, ok := firstOffset(n); ok {
			n.SetAttributeString(contracts.LineAttribute, strconv.Itoa(sourceLine(reader, offset)))
		}
		return ast.WalkContinue, nil
	})
}

func annotated(k ast.NodeKind) bool {
	switch k {
	case ast.KindHeading, ast.KindParagraph, ast.KindBlockquote,
		ast.KindFencedCodeBlock, ast.KindList, ast.KindListItem,
		ast.KindThematicBreak, extensionast.KindTable:
		return true
	}
	return false
}

// firstOffset returns the start of a node's first line. Container nodes
// have no lines of their own, so their children are searched.
func firstOffset(n ast.Node) (int, bool) {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start, true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if offset, ok := firstOffset(c); ok {
			return offset, true
		}
	}
	return 0, false
}

// assetRewriter points local images and links at the preview asset route.
type assetRewriter struct{}

func (assetRewriter) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	dir := ""
	if p, _ := pc.Get(sourcePathKey).(string); p != "" {
		dir = filepath.Dir(p)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			if dest, ok := assetDestination(node.Destination, dir); ok {
				node.Destination = []byte(dest)
				node.SetAttributeString("loading", "lazy")
				node.SetAttributeString("decoding", "async")
			}
		case *ast.Link:
			if dest, ok := assetDestination(node.Destination, dir); ok {
				node.Destination = []byte(dest)
			}
		}
		return ast.WalkContinue, nil
	})
}

var remotePrefixes = []string{"http://", "https://", "data:", "blob:", "file://", "mailto:", "//", "#", contracts.AssetPrefix}

func assetDestination(raw []byte, dir string) (string, bool) {
	dest := strings.TrimSpace(string(raw))
	if dest == "" {
		return "", false
	}
	lower := strings.ToLower(dest)
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	switch {
	case filepath.IsAbs(dest):
		return contracts.AssetURL(dest), true
	case dir != "":
		return contracts.AssetURL(filepath.Join(dir, dest)), true
	}
	return "", false
}
