package site

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
	),
)

// renderMarkdown converts a markdown body to HTML. Raw HTML in the source is
// dropped by the renderer.
func renderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdownParser.Convert([]byte(source), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}
	return buf.String(), nil
}

// markdownCached renders source once per pass, keyed by key.
func markdownCached(cache map[string]any, key, source string) (string, error) {
	cacheKey := "markdown:" + key
	if cache != nil {
		if cached, ok := cache[cacheKey].(string); ok {
			return cached, nil
		}
	}

	rendered, err := renderMarkdown(source)
	if err != nil {
		return "", err
	}
	if cache != nil {
		cache[cacheKey] = rendered
	}
	return rendered, nil
}

// rawHTML writes trusted HTML without escaping.
func rawHTML(fragment string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.WriteString(w, fragment)
		return err
	})
}

// summarize extracts the visible text of an HTML fragment, collapsing
// whitespace and cutting it at limit runes on a word boundary.
func summarize(fragment string, limit int) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var words []string
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}
		if tokenType == html.TextToken {
			words = append(words, strings.Fields(string(tokenizer.Text()))...)
		}
	}

	text := strings.Join(words, " ")
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}

	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
