package views

import (
	"blogfront/models"
)

// Fields of the new post form, in display order
var formFields = []struct {
	Name  string
	Label string
}{
	{Name: models.FieldTitle, Label: "Title"},
	{Name: models.FieldCategories, Label: "Categories"},
	{Name: models.FieldContent, Label: "Post Content"},
}

// FieldErrors maps field names to validation messages
type FieldErrors map[string]string

// Validate checks that every field of a new post is present. Whitespace
// counts as present.
func Validate(values models.PostValues) FieldErrors {
	errors := FieldErrors{}

	if values.Title == "" {
		errors[models.FieldTitle] = "Enter a title"
	}

	if values.Categories == "" {
		errors[models.FieldCategories] = "Enter one or more categories"
	}

	if values.Content == "" {
		errors[models.FieldContent] = "Enter some content"
	}

	return errors
}

// Form is the state of the new post form. Errors are always computed but
// only shown for fields the user has interacted with.
type Form struct {
	Values  models.PostValues
	errors  FieldErrors
	touched map[string]bool
}

func NewForm(values models.PostValues) *Form {
	return &Form{
		Values:  values,
		errors:  Validate(values),
		touched: map[string]bool{},
	}
}

// Touch marks fields as interacted with. Unknown names are ignored.
func (f *Form) Touch(fields ...string) {
	for _, field := range fields {
		for _, known := range formFields {
			if known.Name == field {
				f.touched[field] = true
			}
		}
	}
}

// Submit touches every field and reports whether submission may proceed
func (f *Form) Submit() bool {
	for _, field := range formFields {
		f.touched[field.Name] = true
	}
	return f.Valid()
}

func (f *Form) Valid() bool {
	return len(f.errors) == 0
}

func (f *Form) Touched(field string) bool {
	return f.touched[field]
}

// Error returns the visible error for field: empty until it is touched
func (f *Form) Error(field string) string {
	if !f.touched[field] {
		return ""
	}
	return f.errors[field]
}

// Errors returns every validation error regardless of touched state
func (f *Form) Errors() FieldErrors {
	return f.errors
}

type formField struct {
	Name    string
	Label   string
	Value   string
	Error   string
	Touched bool
}

func (f *Form) fields() []formField {
	fields := make([]formField, len(formFields))
	for i, field := range formFields {
		fields[i] = formField{
			Name:    field.Name,
			Label:   field.Label,
			Value:   f.Values.Get(field.Name),
			Error:   f.Error(field.Name),
			Touched: f.touched[field.Name],
		}
	}
	return fields
}
