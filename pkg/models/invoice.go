package models

// Invoice is the record recovered from the model reply. It is a plain JSON
// object: values keep the types encoding/json produced (string, float64,
// bool, nil, []any, map[string]any) and are never coerced or corrected.
//
// Expected keys: invoice_number, invoice_date, due_date,
// vendor{name,address,phone,email,tax_id}, customer{name,address,phone,email},
// items[{description,quantity,unit_price,total_price}], subtotal, tax,
// discount, shipping, total_amount, payment_terms, payment_method, notes.
type Invoice map[string]any

// String returns the value of key when it is a JSON string.
func (inv Invoice) String(key string) (string, bool) {
	s, ok := inv[key].(string)
	return s, ok
}

// Number returns the value of key when it is a JSON number.
func (inv Invoice) Number(key string) (float64, bool) {
	f, ok := inv[key].(float64)
	return f, ok
}

// InvoiceNumber returns invoice_number when it is a string.
func (inv Invoice) InvoiceNumber() string {
	s, _ := inv.String("invoice_number")
	return s
}

// TotalAmount returns total_amount when it is a number.
func (inv Invoice) TotalAmount() (float64, bool) {
	return inv.Number("total_amount")
}

// Party returns the vendor or customer object.
func (inv Invoice) Party(key string) map[string]any {
	m, _ := inv[key].(map[string]any)
	return m
}

// Items returns the line items that are JSON objects, in order.
func (inv Invoice) Items() []map[string]any {
	raw, _ := inv["items"].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}
