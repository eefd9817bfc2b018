package content

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Content holds the raw field values of a page as stored in the page store.
// Localized fields are maps keyed by language code.
type Content map[string]any

// Resolved is the content of a page for a single language, with every
// localized field reduced to its value for that language.
type Resolved map[string]any

// Page is one content record of a given page type.
type Page struct {
	ID       uint
	Ordering int
	PageType string
	Content  Content
}

// TranslatedPage carries one resolved content view per configured language.
type TranslatedPage struct {
	ID       uint
	Ordering int
	PageType string
	Content  map[string]Resolved
}

// CompiledPage is a row of the compiled-page index. Lang is empty for
// virtual page types, which produce no output file.
type CompiledPage struct {
	PageID   uint
	PageType string
	Lang     string
	Path     string
	Hash     string
}

// DecodeContent parses stored JSON into Content, keeping numbers as
// json.Number so they survive re-serialisation unchanged.
func DecodeContent(raw string) (Content, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var decoded Content
	if err := decoder.Decode(&decoded); err != nil {
		return nil, eris.Wrap(err, "decoding page content")
	}
	if decoded == nil {
		decoded = Content{}
	}

	return decoded, nil
}

// EncodeContent serialises Content for storage.
func EncodeContent(c Content) (string, error) {
	if c == nil {
		c = Content{}
	}

	encoded, err := json.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "encoding page content")
	}

	return string(encoded), nil
}
