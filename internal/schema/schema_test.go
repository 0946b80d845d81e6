package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeKeepsDeclarationOrder(t *testing.T) {
	out, err := Describe(Invoice())
	require.NoError(t, err)

	prev := -1
	for _, name := range Invoice().Names() {
		idx := strings.Index(out, `"`+name+`"`)
		require.GreaterOrEqual(t, idx, 0, "field %s missing from description", name)
		assert.Greater(t, idx, prev, "field %s out of order", name)
		prev = idx
	}
	assert.True(t, strings.HasPrefix(out, "{\n  \"invoice_number\""))
}

func TestDescribeShapes(t *testing.T) {
	out, err := Describe(Invoice())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	vendor, ok := decoded["vendor"].(map[string]any)
	require.True(t, ok, "vendor should be an object")
	assert.Equal(t, "The name of the vendor/supplier", vendor["name"])

	items, ok := decoded["items"].([]any)
	require.True(t, ok, "items should be an array")
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Contains(t, item["total_price"], "quantity × unit_price")

	assert.Equal(t, "The final total amount to be paid", decoded["total_amount"])
}

func TestInvoiceReturnsIndependentCopies(t *testing.T) {
	d := Invoice()
	d.Fields[0].Name = "changed"
	d.Fields[3].Fields[0].Description = "changed"

	fresh := Invoice()
	assert.Equal(t, "invoice_number", fresh.Fields[0].Name)
	assert.Equal(t, "The name of the vendor/supplier", fresh.Fields[3].Fields[0].Description)
}

func TestLookup(t *testing.T) {
	f, ok := Invoice().Lookup("items")
	require.True(t, ok)
	assert.True(t, f.Repeated)
	assert.Len(t, f.Fields, 4)

	_, ok = Invoice().Lookup("currency")
	assert.False(t, ok)
}

func TestMarshalRejectsUnnamedField(t *testing.T) {
	_, err := Descriptor{Fields: []Field{{Description: "orphan"}}}.MarshalJSON()
	assert.Error(t, err)
}

func TestRegistryRequiredFields(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice_number", "invoice_date", "total_amount"}, r.RequiredFields())

	complete := map[string]any{
		"invoice_number": "A1",
		"invoice_date":   "2024-01-31",
		"total_amount":   10.0,
	}
	assert.Empty(t, r.MissingRequired(complete))
	assert.NoError(t, r.Validate(complete))

	partial := map[string]any{"invoice_number": "A1"}
	assert.Equal(t, []string{"invoice_date", "total_amount"}, r.MissingRequired(partial))
	assert.Error(t, r.Validate(partial))
}

func TestRegistryDoesNotCheckTypesOrArithmetic(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	record := map[string]any{
		"invoice_number": 42.0,
		"invoice_date":   nil,
		"total_amount":   "ten",
		"items": []any{
			map[string]any{"description": "X", "quantity": 2.0, "unit_price": 5.0, "total_price": 9.0},
		},
	}
	assert.Empty(t, r.MissingRequired(record))
	assert.NoError(t, r.Validate(record))
}

func TestRegistryDescribeMatchesPackageDescribe(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	got, err := r.Describe()
	require.NoError(t, err)
	want, err := Describe(Invoice())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRegistryFromSchemaDrivesRequiredFields(t *testing.T) {
	r, err := NewRegistryFromSchema([]byte(`{"type":"object","required":["currency","invoice_number"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"currency", "invoice_number"}, r.RequiredFields())
	assert.Equal(t, []string{"currency"}, r.MissingRequired(map[string]any{"invoice_number": "A1"}))
	assert.Equal(t, []string{"currency", "invoice_number"}, r.MissingRequired(nil))
	assert.Empty(t, r.MissingRequired(map[string]any{"currency": nil, "invoice_number": nil}))
}

func TestRegistryFromSchemaRejectsInvalidDocument(t *testing.T) {
	_, err := NewRegistryFromSchema([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = NewRegistryFromSchema([]byte(`{"type":"object","required":"invoice_number"}`))
	assert.Error(t, err)
}
