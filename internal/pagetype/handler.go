package pagetype

import (
	"context"

	"github.com/rotisserie/eris"

	"nodecms/app/internal/content"
)

// ErrTypeNotAvailable is returned by a Lookup when a generator asks for a page
// type that has not been compiled yet in the current pass.
var ErrTypeNotAvailable = eris.New("page type not available in this pass")

// Lookup gives generators read access to already translated pages of other
// page types. Only types compiled earlier in the pass, and the type currently
// being compiled, are available.
type Lookup interface {
	PagesOfType(name string) ([]content.TranslatedPage, error)
}

// Input is passed to every generator invocation.
type Input struct {
	PageID  uint
	Content content.Resolved
	Lang    string
	Langs   []string
	Pages   Lookup
	// Cache is scratch space shared by all generators during one pass.
	Cache map[string]any
}

// Generator produces either the logical path or the HTML of one output.
type Generator func(ctx context.Context, in Input) (string, error)

// Kind is the cardinality of a page type. It is one of List, Single or
// Virtual.
type Kind interface {
	kindName() string
}

// List page types have any number of instances, each rendered to its own path.
type List struct {
	Path Generator
	HTML Generator
}

// Single page types have at most one rendered instance.
type Single struct {
	Path Generator
	HTML Generator
}

// Virtual page types have at most one instance which is never rendered. Its
// content still takes part in change detection for dependent types.
type Virtual struct{}

func (List) kindName() string    { return "list" }
func (Single) kindName() string  { return "single" }
func (Virtual) kindName() string { return "virtual" }

// KindName returns a printable name for the kind.
func KindName(k Kind) string {
	if k == nil {
		return "unknown"
	}
	return k.kindName()
}

// Handler is the static configuration of a page type.
type Handler struct {
	Template content.Template
	Kind     Kind
}

func (h Handler) validate() error {
	switch kind := h.Kind.(type) {
	case List:
		if kind.Path == nil || kind.HTML == nil {
			return eris.New("list page type requires path and html generators")
		}
	case Single:
		if kind.Path == nil || kind.HTML == nil {
			return eris.New("single page type requires path and html generators")
		}
	case Virtual:
	case nil:
		return eris.New("page type kind is required")
	default:
		return eris.Errorf("unsupported page type kind %T", kind)
	}
	return nil
}
