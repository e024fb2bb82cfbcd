package api

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/mvp-joe/neobridge/internal/graphdb"
)

// DefaultRequiredProperties lists the properties a node must carry on
// creation, per label.
func DefaultRequiredProperties() map[string][]string {
	return map[string][]string{
		"Person":  {"name"},
		"Product": {"title", "price"},
	}
}

// Validator checks request bodies and node payloads. Failures are returned
// as human-readable messages suitable for an {"errors": [...]} body.
type Validator struct {
	validate *validator.Validate
	required map[string][]string
}

// NewValidator creates a Validator enforcing required properties per label.
func NewValidator(required map[string][]string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Only fails on a non-string field, which is a programming error.
	_ = v.RegisterValidation("cypher_identifier", func(fl validator.FieldLevel) bool {
		return graphdb.IsIdentifier(fl.Field().String())
	})
	return &Validator{validate: v, required: required}
}

// Struct validates a request body against its validate tags.
func (v *Validator) Struct(s any) []string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return msgs
}

// Identifier checks that name can be used as a label or relationship type.
func (v *Validator) Identifier(field, name string) []string {
	if err := v.validate.Var(name, "required,cypher_identifier"); err != nil {
		return []string{fmt.Sprintf("%s must be a valid identifier (got: %q)", field, name)}
	}
	return nil
}

// Node checks that properties carry every property required for label.
// Messages follow the form "Name is required".
func (v *Validator) Node(label string, properties map[string]any) []string {
	var msgs []string
	for _, prop := range v.required[label] {
		if _, ok := properties[prop]; !ok {
			msgs = append(msgs, capitalize(prop)+" is required")
		}
	}
	return msgs
}

// Labels returns the labels that have required properties, sorted.
func (v *Validator) Labels() []string {
	labels := make([]string, 0, len(v.required))
	for l := range v.required {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func formatFieldError(e validator.FieldError) string {
	path := fieldPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", path, e.Param(), e.Value())
	case "cypher_identifier":
		return fmt.Sprintf("%s must be a valid identifier (got: %q)", path, e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", path, e.Tag(), e.Value())
	}
}

// fieldPath drops the root struct name: "QueryRequest.cursorOptions.limit"
// becomes "cursorOptions.limit".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
