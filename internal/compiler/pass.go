package compiler

import (
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
	"nodecms/app/internal/pagetype"
)

type indexKey struct {
	pageID uint
	lang   string
}

// pass holds the state of one Compile invocation. It is created fresh for
// every pass and never shared between passes.
type pass struct {
	langs    []string
	registry *pagetype.Registry
	writer   *writer
	logger   logrus.FieldLogger

	previous map[indexKey]content.CompiledPage
	// outdated starts with every indexed path; whatever is left after all
	// types ran gets reconciled away.
	outdated map[string]struct{}
	claimed  map[string]struct{}
	updated  map[string]struct{}

	translated map[string][]content.TranslatedPage
	available  map[string]struct{}
	current    string
	cache      map[string]any

	entries []content.CompiledPage
	summary Summary
}

func newPass(langs []string, registry *pagetype.Registry, w *writer, logger logrus.FieldLogger, index []content.CompiledPage, pages []content.TranslatedPage) *pass {
	p := &pass{
		langs:      langs,
		registry:   registry,
		writer:     w,
		logger:     logger,
		previous:   make(map[indexKey]content.CompiledPage, len(index)),
		outdated:   make(map[string]struct{}, len(index)),
		claimed:    make(map[string]struct{}),
		updated:    make(map[string]struct{}),
		translated: make(map[string][]content.TranslatedPage),
		available:  make(map[string]struct{}),
		cache:      make(map[string]any),
	}

	for _, entry := range index {
		p.previous[indexKey{pageID: entry.PageID, lang: entry.Lang}] = entry
		p.outdated[entry.Path] = struct{}{}
	}
	for _, page := range pages {
		p.translated[page.PageType] = append(p.translated[page.PageType], page)
	}

	return p
}

// PagesOfType implements pagetype.Lookup for generators of the current type.
func (p *pass) PagesOfType(name string) ([]content.TranslatedPage, error) {
	if name != p.current {
		if _, ok := p.available[name]; !ok {
			return nil, eris.Wrapf(pagetype.ErrTypeNotAvailable, "page type %s requested while compiling %s", name, p.current)
		}
	}

	pages := p.translated[name]
	out := make([]content.TranslatedPage, len(pages))
	copy(out, pages)
	return out, nil
}

func (p *pass) begin(name string) {
	p.current = name
}

func (p *pass) finish(name string) {
	p.available[name] = struct{}{}
	p.current = ""
}

// claim reserves a logical path for this pass and removes it from the
// outdated set.
func (p *pass) claim(path string) error {
	if _, taken := p.claimed[path]; taken {
		return eris.Wrapf(ErrDuplicatePath, "path %s", path)
	}
	p.claimed[path] = struct{}{}
	delete(p.outdated, path)
	return nil
}

func (p *pass) record(entry content.CompiledPage) {
	p.entries = append(p.entries, entry)
	p.markUpdated(entry.PageType)
}

func (p *pass) markUpdated(name string) {
	p.updated[name] = struct{}{}
}

func (p *pass) isUpdated(name string) bool {
	_, ok := p.updated[name]
	return ok
}

// lostOutputs reports whether an output recorded for the type in the last
// pass was not produced again, for example because its page was deleted.
func (p *pass) lostOutputs(name string) bool {
	for _, entry := range p.previous {
		if entry.PageType != name {
			continue
		}
		if _, stale := p.outdated[entry.Path]; stale {
			return true
		}
	}
	return false
}

func (p *pass) outdatedPaths() []string {
	paths := make([]string, 0, len(p.outdated))
	for path := range p.outdated {
		paths = append(paths, path)
	}
	return paths
}

func (p *pass) input(page content.TranslatedPage, lang string) pagetype.Input {
	return pagetype.Input{
		PageID:  page.ID,
		Content: page.Content[lang],
		Lang:    lang,
		Langs:   p.langs,
		Pages:   p,
		Cache:   p.cache,
	}
}
