package partners

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidate returns a validator.Validate that understands the notblank rule
// and reports fields by their json names.
func NewValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(field.String()) != ""
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validator checks a candidate record before it may be persisted.
type Validator struct {
	schema   Schema
	validate *validator.Validate
}

// NewValidator builds a validator whose messages use the schema labels.
func NewValidator(schema Schema) *Validator {
	return &Validator{schema: schema, validate: NewValidate()}
}

// Validate returns a *ValidationError wrapping ErrMissingField or
// ErrDuplicateTaxID, or nil. Records sharing the candidate's id are ignored
// by the uniqueness check.
func (v *Validator) Validate(candidate Record, existing []Record) error {
	if err := v.validate.Struct(candidate); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		return &ValidationError{
			Reason:  ErrMissingField,
			Fields:  fields,
			Message: fmt.Sprintf("Name, %s and Contact are required.", v.schema.TaxLabel),
		}
	}

	for _, r := range existing {
		if r.ID != candidate.ID && r.TaxID == candidate.TaxID {
			return &ValidationError{
				Reason:  ErrDuplicateTaxID,
				Fields:  []string{"tax_id"},
				Message: fmt.Sprintf("%s already registered.", v.schema.TaxLabel),
			}
		}
	}
	return nil
}
