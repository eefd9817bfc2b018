package site

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
)

// layoutData carries the values shared by every rendered page.
type layoutData struct {
	Lang        string
	Langs       []string
	Title       string
	SiteTitle   string
	Description string
	Footer      string
	// AltPaths maps each language to the path of this page in that language.
	AltPaths map[string]string
}

type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err != nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

func layout(data layoutData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<!DOCTYPE html><html lang="`)
		hw.text(data.Lang)
		hw.raw(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		if data.Title != "" && data.Title != data.SiteTitle {
			hw.text(data.Title)
			hw.raw(` | `)
		}
		hw.text(data.SiteTitle)
		hw.raw(`</title>`)
		if data.Description != "" {
			hw.raw(`<meta name="description" content="`)
			hw.text(data.Description)
			hw.raw(`">`)
		}
		for _, lang := range data.Langs {
			if path, ok := data.AltPaths[lang]; ok {
				hw.raw(`<link rel="alternate" hreflang="`)
				hw.text(lang)
				hw.raw(`" href="`)
				hw.text(path)
				hw.raw(`">`)
			}
		}
		hw.raw(`</head><body><header><a class="site-title" href="/`)
		hw.text(data.Lang)
		hw.raw(`">`)
		hw.text(data.SiteTitle)
		hw.raw(`</a>`)
		if len(data.Langs) > 1 {
			hw.raw(`<nav class="langs">`)
			for _, lang := range data.Langs {
				path, ok := data.AltPaths[lang]
				if !ok {
					path = "/" + lang
				}
				hw.raw(`<a href="`)
				hw.text(path)
				hw.raw(`"`)
				if lang == data.Lang {
					hw.raw(` aria-current="true"`)
				}
				hw.raw(`>`)
				hw.text(lang)
				hw.raw(`</a>`)
			}
			hw.raw(`</nav>`)
		}
		hw.raw(`</header><main>`)
		hw.component(ctx, body)
		hw.raw(`</main><footer>`)
		hw.text(data.Footer)
		hw.raw(`</footer></body></html>`)

		return hw.err
	})
}

func render(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", eris.Wrap(err, "rendering page")
	}
	return buf.String(), nil
}
