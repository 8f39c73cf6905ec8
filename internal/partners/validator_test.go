package partners

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidatorMissingFields(t *testing.T) {
	v := NewValidator(CustomerSchema)

	err := v.Validate(Record{Name: "  ", TaxID: "", Contact: "c"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"name", "tax_id"}, verr.Fields)
	assert.Equal(t, "Name, CPF/CNPJ and Contact are required.", verr.Message)
}

func TestValidatorAddressIsOptional(t *testing.T) {
	v := NewValidator(SupplierSchema)
	assert.NoError(t, v.Validate(Record{Name: "Acme", TaxID: "1", Contact: "c"}, nil))
}

func TestValidatorDuplicateTaxID(t *testing.T) {
	v := NewValidator(SupplierSchema)
	existing := sampleRecords()

	err := v.Validate(Record{Name: "Other", TaxID: "111", Contact: "o"}, existing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTaxID)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "CNPJ already registered.", verr.Message)
}

func TestValidatorIgnoresOwnRecord(t *testing.T) {
	v := NewValidator(CustomerSchema)
	existing := sampleRecords()

	assert.NoError(t, v.Validate(Record{ID: 1, Name: "Ana B", TaxID: "111", Contact: "a@x"}, existing))
}

func TestValidatorTaxIDIsExactMatch(t *testing.T) {
	v := NewValidator(CustomerSchema)
	existing := sampleRecords()

	assert.NoError(t, v.Validate(Record{Name: "X", TaxID: "111 ", Contact: "c"}, existing))
	assert.NoError(t, v.Validate(Record{Name: "X", TaxID: "11", Contact: "c"}, existing))
}

func TestValidatorMissingFieldWinsOverDuplicate(t *testing.T) {
	v := NewValidator(CustomerSchema)
	err := v.Validate(Record{Name: "", TaxID: "111", Contact: "c"}, sampleRecords())
	assert.ErrorIs(t, err, ErrMissingField)
}

func blankGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[ \t]{0,3}`)
}

func TestValidatorMissingFieldProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewValidator(CustomerSchema)
		candidate := Record{
			ID:      rapid.Int64Range(0, 5).Draw(t, "id"),
			Name:    rapid.StringMatching(`[a-z]{1,5}`).Draw(t, "name"),
			TaxID:   rapid.StringMatching(`[0-9]{1,5}`).Draw(t, "tax"),
			Contact: rapid.StringMatching(`[a-z]{1,5}`).Draw(t, "contact"),
		}
		switch rapid.IntRange(0, 2).Draw(t, "blank") {
		case 0:
			candidate.Name = blankGen().Draw(t, "blankName")
		case 1:
			candidate.TaxID = blankGen().Draw(t, "blankTax")
		default:
			candidate.Contact = blankGen().Draw(t, "blankContact")
		}

		existing := rapid.SliceOf(recordGen()).Draw(t, "existing")
		if err := v.Validate(candidate, existing); !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected missing field, got %v", err)
		}
	})
}

func TestValidatorDuplicateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewValidator(SupplierSchema)
		existing := rapid.SliceOfN(recordGen(), 1, 8).Draw(t, "existing")
		target := existing[rapid.IntRange(0, len(existing)-1).Draw(t, "target")]

		id := rapid.Int64Range(0, 30).Filter(func(id int64) bool { return id != target.ID }).Draw(t, "candidateID")
		candidate := Record{ID: id, Name: "n", TaxID: target.TaxID, Contact: "c"}
		if candidate.TaxID == "" {
			// a blank tax id is reported as a missing field instead
			return
		}
		if err := v.Validate(candidate, existing); !errors.Is(err, ErrDuplicateTaxID) {
			t.Fatalf("expected duplicate tax id, got %v", err)
		}
	})
}
