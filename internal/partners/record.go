package partners

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one customer or supplier entry. ID 0 marks a record that has not
// been persisted yet.
type Record struct {
	ID      int64  `json:"id"`
	Name    string `json:"name" validate:"notblank"`
	TaxID   string `json:"tax_id" validate:"notblank"`
	Contact string `json:"contact" validate:"notblank"`
	Address string `json:"address"`
}

// IsNew reports whether the record still carries the unsaved sentinel id.
func (r Record) IsNew() bool {
	return r.ID == 0
}

// Draft returns the id-less payload of the record.
func (r Record) Draft() Draft {
	return Draft{Name: r.Name, TaxID: r.TaxID, Contact: r.Contact, Address: r.Address}
}

// Draft is the create/update payload. It becomes a Record once the remote
// collection assigns an id.
type Draft struct {
	Name    string
	TaxID   string
	Contact string
	Address string
}

// Record attaches id to the draft.
func (d Draft) Record(id int64) Record {
	return Record{ID: id, Name: d.Name, TaxID: d.TaxID, Contact: d.Contact, Address: d.Address}
}

// Kind names the entity type handled by a manager or a collection endpoint.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindSupplier Kind = "supplier"
)

// Schema describes how one Kind is labelled and how it travels on the wire.
type Schema struct {
	Kind     Kind
	Segment  string
	TaxKey   string
	Label    string
	Plural   string
	TaxLabel string
}

var (
	// CustomerSchema maps customers onto the /api/v1/cliente collection.
	CustomerSchema = Schema{
		Kind:     KindCustomer,
		Segment:  "cliente",
		TaxKey:   "cpf_cnpj",
		Label:    "Customer",
		Plural:   "customers",
		TaxLabel: "CPF/CNPJ",
	}
	// SupplierSchema maps suppliers onto the /api/v1/fornecedor collection.
	SupplierSchema = Schema{
		Kind:     KindSupplier,
		Segment:  "fornecedor",
		TaxKey:   "cnpj",
		Label:    "Supplier",
		Plural:   "suppliers",
		TaxLabel: "CNPJ",
	}
)

// Schemas lists every supported kind.
func Schemas() []Schema {
	return []Schema{CustomerSchema, SupplierSchema}
}

// SchemaFor resolves a kind or a path segment to its schema.
func SchemaFor(name string) (Schema, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Schemas() {
		if string(s.Kind) == name || s.Segment == name {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("partners: unknown kind %q", name)
}

const (
	wireID      = "id"
	wireName    = "nome"
	wireContact = "contato"
	wireAddress = "endereco"
)

// EncodeDraft renders the request body for create and update calls.
func (s Schema) EncodeDraft(d Draft) ([]byte, error) {
	return json.Marshal(map[string]string{
		wireName:    d.Name,
		s.TaxKey:    d.TaxID,
		wireContact: d.Contact,
		wireAddress: d.Address,
	})
}

// EncodeRecord renders a record including its id.
func (s Schema) EncodeRecord(r Record) ([]byte, error) {
	return json.Marshal(s.wireRecord(r))
}

// EncodeRecords renders a list response. A nil slice encodes as [].
func (s Schema) EncodeRecords(records []Record) ([]byte, error) {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, s.wireRecord(r))
	}
	return json.Marshal(out)
}

func (s Schema) wireRecord(r Record) map[string]any {
	return map[string]any{
		wireID:      r.ID,
		wireName:    r.Name,
		s.TaxKey:    r.TaxID,
		wireContact: r.Contact,
		wireAddress: r.Address,
	}
}

type wireFields map[string]json.RawMessage

func (w wireFields) str(key string) (string, error) {
	raw, ok := w[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("field %s: %w", key, err)
	}
	return v, nil
}

func (s Schema) draftFrom(w wireFields) (Draft, error) {
	var (
		d   Draft
		err error
	)
	if d.Name, err = w.str(wireName); err != nil {
		return Draft{}, err
	}
	if d.TaxID, err = w.str(s.TaxKey); err != nil {
		return Draft{}, err
	}
	if d.Contact, err = w.str(wireContact); err != nil {
		return Draft{}, err
	}
	if d.Address, err = w.str(wireAddress); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s Schema) recordFrom(w wireFields) (Record, error) {
	d, err := s.draftFrom(w)
	if err != nil {
		return Record{}, err
	}
	var id int64
	if raw, ok := w[wireID]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &id); err != nil {
			return Record{}, fmt.Errorf("field %s: %w", wireID, err)
		}
	}
	return d.Record(id), nil
}

// DecodeDraft parses a create/update request body.
func (s Schema) DecodeDraft(data []byte) (Draft, error) {
	var w wireFields
	if err := json.Unmarshal(data, &w); err != nil {
		return Draft{}, err
	}
	return s.draftFrom(w)
}

// DecodeRecord parses a single record response.
func (s Schema) DecodeRecord(data []byte) (Record, error) {
	var w wireFields
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, err
	}
	return s.recordFrom(w)
}

// DecodeRecords parses a list response.
func (s Schema) DecodeRecords(data []byte) ([]Record, error) {
	var items []wireFields
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(items))
	for i, item := range items {
		r, err := s.recordFrom(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}
