package content

// Translate expands a page into one resolved content view per language. The
// first language is the default; localized values missing (or empty) for a
// language fall back to the default language's value.
func Translate(page Page, langs []string, tmpl Template) TranslatedPage {
	translated := TranslatedPage{
		ID:       page.ID,
		Ordering: page.Ordering,
		PageType: page.PageType,
		Content:  make(map[string]Resolved, len(langs)),
	}
	if len(langs) == 0 {
		return translated
	}

	defaultLang := langs[0]
	for _, lang := range langs {
		translated.Content[lang] = resolve(page.Content, tmpl, lang, defaultLang)
	}

	return translated
}

// TranslateAll translates every page using the template looked up for its
// page type. Pages whose template is unknown are resolved by value shape.
func TranslateAll(pages []Page, langs []string, templateFor func(pageType string) Template) []TranslatedPage {
	translated := make([]TranslatedPage, 0, len(pages))
	for _, page := range pages {
		var tmpl Template
		if templateFor != nil {
			tmpl = templateFor(page.PageType)
		}
		translated = append(translated, Translate(page, langs, tmpl))
	}
	return translated
}

func resolve(raw map[string]any, tmpl Template, lang, defaultLang string) Resolved {
	resolved := make(Resolved, len(raw))
	for key, value := range raw {
		resolved[key] = resolveValue(value, tmpl[key], lang, defaultLang)
	}
	return resolved
}

func resolveValue(value any, fieldType FieldType, lang, defaultLang string) any {
	switch ft := fieldType.(type) {
	case Scalar:
		if !ft.Localized() {
			return value
		}
		if localized, ok := asObject(value); ok {
			return pickLanguage(localized, lang, defaultLang)
		}
		return value
	case Group:
		return resolveGroup(value, ft.Template(), lang, defaultLang)
	}

	// Undeclared field: decide by shape.
	if localized, ok := asObject(value); ok {
		return pickLanguage(localized, lang, defaultLang)
	}
	return resolveGroup(value, nil, lang, defaultLang)
}

func resolveGroup(value any, tmpl Template, lang, defaultLang string) any {
	items, ok := value.([]any)
	if !ok {
		return value
	}

	resolved := make([]any, len(items))
	for i, item := range items {
		if object, isObject := asObject(item); isObject {
			resolved[i] = resolve(object, tmpl, lang, defaultLang)
			continue
		}
		resolved[i] = item
	}
	return resolved
}

func pickLanguage(values map[string]any, lang, defaultLang string) any {
	if value, ok := values[lang]; ok && !isEmpty(value) {
		return value
	}
	return values[defaultLang]
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}

func asObject(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case Content:
		return v, true
	case Resolved:
		return v, true
	}
	return nil, false
}
