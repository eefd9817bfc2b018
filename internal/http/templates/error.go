package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Lang        string
	StatusLabel string
	Message     string
	HomeURL     string
}

// ErrorPage renders a standalone error document.
func ErrorPage(data ErrorPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lang := data.Lang
		if lang == "" {
			lang = "en"
		}
		home := data.HomeURL
		if home == "" {
			home = "/"
		}

		parts := []string{
			`<!DOCTYPE html><html lang="`, templ.EscapeString(lang), `"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`,
			templ.EscapeString(data.StatusLabel), `</title></head><body><main class="error"><h1>`,
			templ.EscapeString(data.StatusLabel), `</h1><p>`, templ.EscapeString(data.Message),
			`</p><a href="`, templ.EscapeString(home), `">Back to the home page</a></main></body></html>`,
		}
		for _, part := range parts {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}
		return nil
	})
}
