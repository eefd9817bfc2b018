package compiler

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
	"nodecms/app/internal/pagetype"
)

const virtualPathPrefix = "@virtual/"

// VirtualPath is the index path recorded for the instance of a virtual type.
func VirtualPath(typeName string) string {
	return virtualPathPrefix + typeName
}

// compileType generates the outputs of one page type for every instance and
// language, dispatching on the type's kind.
func (c *Compiler) compileType(ctx context.Context, p *pass, name string, handler pagetype.Handler) error {
	p.begin(name)
	defer p.finish(name)

	pages := p.translated[name]
	logger := p.logger.WithFields(logrus.Fields{"page_type": name, "kind": pagetype.KindName(handler.Kind)})
	logger.WithField("instances", len(pages)).Debug("Compiling page type")

	switch kind := handler.Kind.(type) {
	case pagetype.List:
		for _, page := range pages {
			if err := c.compileRendered(ctx, p, logger, name, page, kind.Path, kind.HTML); err != nil {
				return err
			}
		}
	case pagetype.Single:
		if len(pages) > 1 {
			return eris.Wrapf(ErrMultipleInstances, "page type %s has %d instances", name, len(pages))
		}
		for _, page := range pages {
			if err := c.compileRendered(ctx, p, logger, name, page, kind.Path, kind.HTML); err != nil {
				return err
			}
		}
	case pagetype.Virtual:
		if len(pages) > 1 {
			return eris.Wrapf(ErrMultipleInstances, "page type %s has %d instances", name, len(pages))
		}
		for _, page := range pages {
			if err := c.compileVirtual(p, logger, name, page); err != nil {
				return err
			}
		}
	default:
		return eris.Errorf("page type %s has unsupported kind %T", name, kind)
	}

	if !p.isUpdated(name) && p.lostOutputs(name) {
		logger.Debug("Page type lost outputs since the last pass")
		p.markUpdated(name)
	}

	return nil
}

func (c *Compiler) compileRendered(ctx context.Context, p *pass, logger *logrus.Entry, name string, page content.TranslatedPage, pathGen, htmlGen pagetype.Generator) error {
	for _, lang := range p.langs {
		pageLogger := logger.WithFields(logrus.Fields{"page_id": page.ID, "lang": lang})

		langCopy := lang
		hash, err := contentHash(name, &langCopy, page.Content[lang], page.ID)
		if err != nil {
			return err
		}

		change := p.detectChange(name, page.ID, lang, hash, true)
		if change.Status == StatusUnchanged {
			if err := p.claim(change.Path); err != nil {
				return err
			}
			p.summary.Kept++
			pageLogger.WithField("path", change.Path).Debug("Page unchanged")
			continue
		}

		in := p.input(page, lang)
		path, err := pathGen(ctx, in)
		if err != nil {
			return eris.Wrapf(err, "generating path of %s page %d (%s)", name, page.ID, lang)
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return eris.Wrapf(ErrEmptyPath, "%s page %d (%s)", name, page.ID, lang)
		}

		html, err := htmlGen(ctx, in)
		if err != nil {
			return eris.Wrapf(err, "generating html of %s page %d (%s)", name, page.ID, lang)
		}

		written, err := p.writer.write(change.Hash, html, pageLogger)
		if err != nil {
			return err
		}
		if !written {
			continue
		}

		if err := p.claim(path); err != nil {
			return err
		}
		p.record(content.CompiledPage{
			PageID:   page.ID,
			PageType: name,
			Lang:     lang,
			Path:     path,
			Hash:     change.Hash,
		})
		p.summary.Written++
		pageLogger.WithFields(logrus.Fields{"path": path, "status": change.Status.String()}).Info("Compiled page")
	}

	return nil
}

func (c *Compiler) compileVirtual(p *pass, logger *logrus.Entry, name string, page content.TranslatedPage) error {
	hash, err := contentHash(name, nil, page.Content, page.ID)
	if err != nil {
		return err
	}

	path := VirtualPath(name)
	if err := p.claim(path); err != nil {
		return err
	}

	change := p.detectChange(name, page.ID, "", hash, false)
	if change.Status == StatusUnchanged {
		p.summary.Kept++
		logger.WithField("page_id", page.ID).Debug("Virtual page unchanged")
		return nil
	}

	p.record(content.CompiledPage{
		PageID:   page.ID,
		PageType: name,
		Path:     path,
		Hash:     hash,
	})
	logger.WithFields(logrus.Fields{"page_id": page.ID, "status": change.Status.String()}).Info("Virtual page changed")
	return nil
}
