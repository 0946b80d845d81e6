// Package schema describes the shape of the invoice record the vision model
// is asked to produce.
//
// The descriptor is a static, ordered tree of field names and human-readable
// descriptions. It is serialized into the prompt and can be used after
// recovery to check that the required top-level fields are present. It never
// coerces types and never checks that amounts add up.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one entry of a Descriptor. A field with nested Fields describes an
// object; Repeated turns that object into an array of objects.
type Field struct {
	Name        string
	Description string
	Fields      []Field
	Repeated    bool
}

// Descriptor is an ordered description of a record.
type Descriptor struct {
	Fields []Field
}

// Invoice returns the invoice descriptor. Every call builds a new value, so
// callers cannot change what other pipelines see.
func Invoice() Descriptor {
	return Descriptor{Fields: []Field{
		{Name: "invoice_number", Description: "The unique identifier for this invoice"},
		{Name: "invoice_date", Description: "The date when the invoice was issued (YYYY-MM-DD format)"},
		{Name: "due_date", Description: "The date when payment is due (YYYY-MM-DD format)"},
		{Name: "vendor", Fields: []Field{
			{Name: "name", Description: "The name of the vendor/supplier"},
			{Name: "address", Description: "The full address of the vendor"},
			{Name: "phone", Description: "The phone number of the vendor"},
			{Name: "email", Description: "The email address of the vendor"},
			{Name: "tax_id", Description: "The tax ID or business registration number of the vendor"},
		}},
		{Name: "customer", Fields: []Field{
			{Name: "name", Description: "The name of the customer/client"},
			{Name: "address", Description: "The full address of the customer"},
			{Name: "phone", Description: "The phone number of the customer"},
			{Name: "email", Description: "The email address of the customer"},
		}},
		{Name: "items", Repeated: true, Fields: []Field{
			{Name: "description", Description: "Description of the product or service"},
			{Name: "quantity", Description: "The quantity of the item"},
			{Name: "unit_price", Description: "The price per unit"},
			{Name: "total_price", Description: "The total price for this item (quantity × unit_price)"},
		}},
		{Name: "subtotal", Description: "The sum of all item totals before tax and discounts"},
		{Name: "tax", Description: "The tax amount"},
		{Name: "discount", Description: "Any discount applied"},
		{Name: "shipping", Description: "Shipping or delivery charges"},
		{Name: "total_amount", Description: "The final total amount to be paid"},
		{Name: "payment_terms", Description: "The terms of payment"},
		{Name: "payment_method", Description: "The method of payment"},
		{Name: "notes", Description: "Any additional notes or comments on the invoice"},
	}}
}

// Names returns the top-level field names in declaration order.
func (d Descriptor) Names() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Lookup returns the top-level field with the given name.
func (d Descriptor) Lookup(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSON writes the descriptor as a JSON object whose keys keep the
// declaration order. Leaves map to their description, objects to nested
// objects and repeated objects to a one-element array.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFields(&buf, d.Fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFields(buf *bytes.Buffer, fields []Field) error {
	buf.WriteByte('{')
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("schema: field %d has no name", i)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')

		switch {
		case len(f.Fields) == 0:
			desc, err := json.Marshal(f.Description)
			if err != nil {
				return err
			}
			buf.Write(desc)
		case f.Repeated:
			buf.WriteByte('[')
			if err := writeFields(buf, f.Fields); err != nil {
				return err
			}
			buf.WriteByte(']')
		default:
			if err := writeFields(buf, f.Fields); err != nil {
				return err
			}
		}
	}
	buf.WriteByte('}')
	return nil
}
