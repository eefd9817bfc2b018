package compiler

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
	"nodecms/app/internal/pagetype"
)

// PageSource lists the pages to compile.
type PageSource interface {
	List(ctx context.Context) ([]content.Page, error)
}

// Index is the compiled-page index the compiler reads and maintains.
type Index interface {
	List(ctx context.Context) ([]content.CompiledPage, error)
	AddAll(ctx context.Context, entries []content.CompiledPage) error
	DeletePaths(ctx context.Context, paths []string) ([]content.CompiledPage, error)
}

// Options configures a Compiler.
type Options struct {
	Root     string
	Langs    []string
	Registry *pagetype.Registry
	Pages    PageSource
	Index    Index
}

// Summary describes the outcome of one pass.
type Summary struct {
	Duration     time.Duration
	Types        int
	Pages        int
	Written      int
	Kept         int
	Removed      int
	FilesRemoved int
}

// Compiler turns the pages of the page store into HTML artifacts under
// <root>/pages and keeps the compiled-page index in step with them. It holds
// no state between passes.
type Compiler struct {
	root     string
	langs    []string
	registry *pagetype.Registry
	pages    PageSource
	index    Index
}

// New validates the options and constructs a Compiler.
func New(opts Options) (*Compiler, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, eris.New("output root is required")
	}
	if len(opts.Langs) == 0 {
		return nil, eris.New("at least one language is required")
	}
	if opts.Registry == nil {
		return nil, eris.New("page type registry is required")
	}
	if opts.Pages == nil {
		return nil, eris.New("page source is required")
	}
	if opts.Index == nil {
		return nil, eris.New("compiled page index is required")
	}

	langs := make([]string, len(opts.Langs))
	copy(langs, opts.Langs)

	return &Compiler{
		root:     opts.Root,
		langs:    langs,
		registry: opts.Registry,
		pages:    opts.Pages,
		index:    opts.Index,
	}, nil
}

// Root returns the output root.
func (c *Compiler) Root() string {
	return c.root
}

// Langs returns the configured languages, default first.
func (c *Compiler) Langs() []string {
	langs := make([]string, len(c.langs))
	copy(langs, c.langs)
	return langs
}

// Compile runs one full pass. Progress is reported through logger at debug
// and info level. Configuration errors, store failures and generator errors
// abort the pass.
func (c *Compiler) Compile(ctx context.Context, logger logrus.FieldLogger) (Summary, error) {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	started := time.Now()
	logger.Info("Compiling site")

	w, err := newWriter(c.root)
	if err != nil {
		return Summary{}, err
	}
	if err := w.ensureLayout(); err != nil {
		return Summary{}, err
	}

	index, err := c.index.List(ctx)
	if err != nil {
		return Summary{}, eris.Wrap(err, "listing compiled pages")
	}

	pages, err := c.pages.List(ctx)
	if err != nil {
		return Summary{}, eris.Wrap(err, "listing pages")
	}
	translated := content.TranslateAll(pages, c.langs, c.registry.Template)
	logger.WithFields(logrus.Fields{"pages": len(pages), "langs": c.langs}).Debug("Translated pages")

	order, err := pagetype.ResolveOrder(c.registry)
	if err != nil {
		return Summary{}, err
	}
	logger.WithField("order", order).Debug("Resolved page type order")

	p := newPass(c.langs, c.registry, w, logger, index, translated)
	p.summary.Pages = len(pages)
	c.warnUnhandled(p, order)

	for _, name := range order {
		handler, _ := c.registry.Get(name)
		if err := c.compileType(ctx, p, name, handler); err != nil {
			return p.summary, err
		}
		p.summary.Types++
	}

	if err := c.index.AddAll(ctx, p.entries); err != nil {
		return p.summary, eris.Wrap(err, "storing compiled pages")
	}

	if err := c.reconcile(ctx, p); err != nil {
		return p.summary, err
	}

	p.summary.Duration = time.Since(started)
	logger.WithFields(logrus.Fields{
		"duration_ms":   p.summary.Duration.Milliseconds(),
		"written":       p.summary.Written,
		"kept":          p.summary.Kept,
		"removed":       p.summary.Removed,
		"files_removed": p.summary.FilesRemoved,
	}).Info("Site compiled")

	return p.summary, nil
}

func (c *Compiler) warnUnhandled(p *pass, order []string) {
	known := make(map[string]struct{}, len(order))
	for _, name := range order {
		known[name] = struct{}{}
	}
	for name, pages := range p.translated {
		if _, ok := known[name]; ok {
			continue
		}
		p.logger.WithFields(logrus.Fields{"page_type": name, "instances": len(pages)}).Warn("Skipping pages of unregistered page type")
	}
}
