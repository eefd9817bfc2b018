package site

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"

	"nodecms/app/internal/content"
	"nodecms/app/internal/pagetype"
)

// Page type names.
const (
	TypeSettings = "settings"
	TypePost     = "post"
	TypeHome     = "home"
)

const (
	defaultSiteTitle = "Site"
	defaultHomeLimit = 10
	summaryLength    = 160
)

var (
	settingsTemplate = content.Template{
		"site_title":  content.String,
		"description": content.Text,
		"footer":      content.Text,
	}
	postTemplate = content.Template{
		"title": content.String,
		"body":  content.Text,
		"date":  content.Date,
		"cover": content.Image,
		"tags":  content.Group{{Name: "label", Type: content.String}},
	}
	homeTemplate = content.Template{
		"heading": content.String,
		"intro":   content.Text,
		"limit":   content.Number,
	}
)

// NewRegistry builds the page types served by the site.
func NewRegistry() (*pagetype.Registry, error) {
	registry := pagetype.NewRegistry()

	handlers := []struct {
		name    string
		handler pagetype.Handler
	}{
		{TypeSettings, pagetype.Handler{Template: settingsTemplate, Kind: pagetype.Virtual{}}},
		{TypePost, pagetype.Handler{Template: postTemplate, Kind: pagetype.List{Path: postPath, HTML: postHTML}}},
		{TypeHome, pagetype.Handler{Template: homeTemplate, Kind: pagetype.Single{Path: homePath, HTML: homeHTML}}},
	}
	for _, h := range handlers {
		if err := registry.Register(h.name, h.handler); err != nil {
			return nil, err
		}
	}

	registry.SetDependencies(map[string][]string{
		TypePost: {TypeSettings},
		TypeHome: {TypeSettings, TypePost},
	})

	return registry, nil
}

type siteSettings struct {
	Title       string
	Description string
	Footer      string
}

func loadSettings(in pagetype.Input) (siteSettings, error) {
	settings := siteSettings{Title: defaultSiteTitle}

	pages, err := in.Pages.PagesOfType(TypeSettings)
	if err != nil {
		return settings, err
	}
	if len(pages) == 0 {
		return settings, nil
	}

	values := pages[0].Content[in.Lang]
	if title := stringField(values, "site_title"); title != "" {
		settings.Title = title
	}
	settings.Description = stringField(values, "description")
	settings.Footer = stringField(values, "footer")
	return settings, nil
}

func postPathFor(lang string, id uint, values map[string]any) string {
	slug := slugify(stringField(values, "title"))
	if slug == "" {
		return fmt.Sprintf("/%s/post/%d", lang, id)
	}
	return fmt.Sprintf("/%s/post/%d-%s", lang, id, slug)
}

func postPath(_ context.Context, in pagetype.Input) (string, error) {
	return postPathFor(in.Lang, in.PageID, in.Content), nil
}

func homePath(_ context.Context, in pagetype.Input) (string, error) {
	return "/" + in.Lang, nil
}

func postHTML(ctx context.Context, in pagetype.Input) (string, error) {
	settings, err := loadSettings(in)
	if err != nil {
		return "", err
	}

	body, err := markdownCached(in.Cache, fmt.Sprintf("post:%d:%s", in.PageID, in.Lang), stringField(in.Content, "body"))
	if err != nil {
		return "", eris.Wrapf(err, "rendering body of post %d", in.PageID)
	}

	posts, err := in.Pages.PagesOfType(TypePost)
	if err != nil {
		return "", err
	}
	altPaths := make(map[string]string, len(in.Langs))
	for _, post := range posts {
		if post.ID != in.PageID {
			continue
		}
		for _, lang := range in.Langs {
			altPaths[lang] = postPathFor(lang, post.ID, post.Content[lang])
		}
	}

	title := stringField(in.Content, "title")
	var tags []string
	for _, tag := range groupField(in.Content, "tags") {
		if label := stringField(tag, "label"); label != "" {
			tags = append(tags, titleCase(label, in.Lang))
		}
	}

	article := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<article class="post"><h1>`)
		hw.text(title)
		hw.raw(`</h1>`)
		if date := stringField(in.Content, "date"); date != "" {
			hw.raw(`<time datetime="`)
			hw.text(date)
			hw.raw(`">`)
			hw.text(date)
			hw.raw(`</time>`)
		}
		if cover := stringField(in.Content, "cover"); cover != "" {
			hw.raw(`<img class="cover" src="/content/`)
			hw.text(strings.TrimPrefix(cover, "/"))
			hw.raw(`" alt="`)
			hw.text(title)
			hw.raw(`">`)
		}
		hw.component(ctx, rawHTML(body))
		if len(tags) > 0 {
			hw.raw(`<ul class="tags">`)
			for _, tag := range tags {
				hw.raw(`<li>`)
				hw.text(tag)
				hw.raw(`</li>`)
			}
			hw.raw(`</ul>`)
		}
		hw.raw(`</article>`)
		return hw.err
	})

	return render(ctx, layout(layoutData{
		Lang:        in.Lang,
		Langs:       in.Langs,
		Title:       title,
		SiteTitle:   settings.Title,
		Description: summarize(body, summaryLength),
		Footer:      settings.Footer,
		AltPaths:    altPaths,
	}, article))
}

type postLink struct {
	Title   string
	Path    string
	Date    string
	Summary string
}

func homeHTML(ctx context.Context, in pagetype.Input) (string, error) {
	settings, err := loadSettings(in)
	if err != nil {
		return "", err
	}

	posts, err := in.Pages.PagesOfType(TypePost)
	if err != nil {
		return "", err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return stringField(posts[i].Content[in.Lang], "date") > stringField(posts[j].Content[in.Lang], "date")
	})

	limit := defaultHomeLimit
	if raw := stringField(in.Content, "limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return "", eris.Wrapf(err, "invalid home limit %q", raw)
		}
		limit = parsed
	}
	if limit >= 0 && len(posts) > limit {
		posts = posts[:limit]
	}

	links := make([]postLink, 0, len(posts))
	for _, post := range posts {
		values := post.Content[in.Lang]
		body, err := markdownCached(in.Cache, fmt.Sprintf("post:%d:%s", post.ID, in.Lang), stringField(values, "body"))
		if err != nil {
			return "", eris.Wrapf(err, "rendering body of post %d", post.ID)
		}
		links = append(links, postLink{
			Title:   stringField(values, "title"),
			Path:    postPathFor(in.Lang, post.ID, values),
			Date:    stringField(values, "date"),
			Summary: summarize(body, summaryLength),
		})
	}

	intro, err := renderMarkdown(stringField(in.Content, "intro"))
	if err != nil {
		return "", eris.Wrap(err, "rendering home intro")
	}

	heading := stringField(in.Content, "heading")
	altPaths := make(map[string]string, len(in.Langs))
	for _, lang := range in.Langs {
		altPaths[lang] = "/" + lang
	}

	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<section class="home"><h1>`)
		hw.text(heading)
		hw.raw(`</h1>`)
		hw.component(ctx, rawHTML(intro))
		hw.raw(`<ul class="posts">`)
		for _, link := range links {
			hw.raw(`<li><a href="`)
			hw.text(link.Path)
			hw.raw(`">`)
			hw.text(link.Title)
			hw.raw(`</a>`)
			if link.Date != "" {
				hw.raw(` <time datetime="`)
				hw.text(link.Date)
				hw.raw(`">`)
				hw.text(link.Date)
				hw.raw(`</time>`)
			}
			if link.Summary != "" {
				hw.raw(`<p>`)
				hw.text(link.Summary)
				hw.raw(`</p>`)
			}
			hw.raw(`</li>`)
		}
		hw.raw(`</ul></section>`)
		return hw.err
	})

	return render(ctx, layout(layoutData{
		Lang:        in.Lang,
		Langs:       in.Langs,
		Title:       heading,
		SiteTitle:   settings.Title,
		Description: settings.Description,
		Footer:      settings.Footer,
		AltPaths:    altPaths,
	}, body))
}
