package content

// FieldType declares the shape of a template field. It is either a Scalar or
// a Group of nested fields.
type FieldType interface {
	fieldType()
}

// Scalar is a leaf field type.
type Scalar string

const (
	String        Scalar = "string"
	Text          Scalar = "text"
	Image         Scalar = "img"
	Images        Scalar = "img[]"
	ImageCaptions Scalar = "img_caption[]"
	SVG           Scalar = "svg"
	Video         Scalar = "video"
	Date          Scalar = "date"
	Number        Scalar = "number"
	Bool          Scalar = "bool"
)

func (Scalar) fieldType() {}

// Localized reports whether values of this type are language-keyed maps.
func (s Scalar) Localized() bool {
	return s == String || s == Text
}

// GroupField is a named member of a Group.
type GroupField struct {
	Name string
	Type FieldType
}

// Group is a repeating set of nested fields. Values of a group field are
// arrays whose elements are objects shaped by the group.
type Group []GroupField

func (Group) fieldType() {}

// Template returns the group's fields as a Template.
func (g Group) Template() Template {
	tmpl := make(Template, len(g))
	for _, field := range g {
		tmpl[field.Name] = field.Type
	}
	return tmpl
}

// Template maps field names to their declared types.
type Template map[string]FieldType
