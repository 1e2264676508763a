package obligations

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Obligation is a debt record exactly as the remote service represents it.
// Known fields are pointers so an absent field stays absent; anything else the
// server sends is kept in Extra and written back on encode.
type Obligation struct {
	ID          *ID
	Creditor    *string
	Debtor      *string
	Amount      *json.Number
	Currency    *string
	DueDate     *string
	Status      *string
	Category    *string
	Description *string
	CreatedAt   *string
	UpdatedAt   *string

	Extra map[string]json.RawMessage
}

// Field names used by the remote API.
const (
	FieldID          = "id"
	FieldCreditor    = "creditor"
	FieldDebtor      = "debtor"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldDueDate     = "due_date"
	FieldStatus      = "status"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

// KnownFields lists the documented fields in display order.
var KnownFields = []string{
	FieldID, FieldCreditor, FieldDebtor, FieldAmount, FieldCurrency, FieldDueDate,
	FieldStatus, FieldCategory, FieldDescription, FieldCreatedAt, FieldUpdatedAt,
}

// Identifier returns the record id or the zero ID when absent.
func (o Obligation) Identifier() ID {
	if o.ID == nil {
		return ID{}
	}
	return *o.ID
}

// Ptr is a small helper for building partial records.
func Ptr[T any](v T) *T { return &v }

func (o *Obligation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode debt: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("decode debt: expected object, got %s", bytes.TrimSpace(data))
	}

	out := Obligation{}
	targets := out.targets()
	for key, value := range raw {
		target, known := targets[key]
		if known && !isNull(value) && target(value) == nil {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = value
	}
	*o = out
	return nil
}

func (o Obligation) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(o.Extra)+len(KnownFields))
	for key, value := range o.Extra {
		fields[key] = value
	}
	put := func(key string, present bool, v any) {
		if present {
			fields[key] = v
		}
	}
	put(FieldID, o.ID != nil, o.ID)
	put(FieldCreditor, o.Creditor != nil, o.Creditor)
	put(FieldDebtor, o.Debtor != nil, o.Debtor)
	put(FieldAmount, o.Amount != nil, o.Amount)
	put(FieldCurrency, o.Currency != nil, o.Currency)
	put(FieldDueDate, o.DueDate != nil, o.DueDate)
	put(FieldStatus, o.Status != nil, o.Status)
	put(FieldCategory, o.Category != nil, o.Category)
	put(FieldDescription, o.Description != nil, o.Description)
	put(FieldCreatedAt, o.CreatedAt != nil, o.CreatedAt)
	put(FieldUpdatedAt, o.UpdatedAt != nil, o.UpdatedAt)
	return json.Marshal(fields)
}

// Fields flattens the record into a field-name keyed map of raw JSON values.
func (o Obligation) Fields() (map[string]json.RawMessage, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// targets maps known keys to decoders writing into o. A known key holding null
// or a value of an unexpected type is kept verbatim in Extra instead.
func (o *Obligation) targets() map[string]func(json.RawMessage) error {
	str := func(dst **string) func(json.RawMessage) error {
		return func(v json.RawMessage) error {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			*dst = &s
			return nil
		}
	}
	return map[string]func(json.RawMessage) error{
		FieldID: func(v json.RawMessage) error {
			var id ID
			if err := id.UnmarshalJSON(v); err != nil {
				return err
			}
			o.ID = &id
			return nil
		},
		FieldAmount: func(v json.RawMessage) error {
			v = bytes.TrimSpace(v)
			if len(v) == 0 || (v[0] != '-' && (v[0] < '0' || v[0] > '9')) {
				return fmt.Errorf("amount is not a number")
			}
			n := json.Number(v)
			if _, err := n.Float64(); err != nil {
				return err
			}
			o.Amount = &n
			return nil
		},
		FieldCreditor:    str(&o.Creditor),
		FieldDebtor:      str(&o.Debtor),
		FieldCurrency:    str(&o.Currency),
		FieldDueDate:     str(&o.DueDate),
		FieldStatus:      str(&o.Status),
		FieldCategory:    str(&o.Category),
		FieldDescription: str(&o.Description),
		FieldCreatedAt:   str(&o.CreatedAt),
		FieldUpdatedAt:   str(&o.UpdatedAt),
	}
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
