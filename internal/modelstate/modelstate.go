package modelstate

import "github.com/labstack/echo/v4"

// SummaryKey is the field name used for form-level errors.
const SummaryKey = ""

const contextKey = "modelstate"

// Bag accumulates validation errors for a single request: field name to an
// ordered list of messages. The empty field name holds summary errors.
type Bag struct {
	errors map[string][]string
	order  []string
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{errors: make(map[string][]string)}
}

// AddError appends a message for the given field, preserving insertion order.
func (b *Bag) AddError(field, message string) {
	if message == "" {
		return
	}
	if _, ok := b.errors[field]; !ok {
		b.order = append(b.order, field)
	}
	b.errors[field] = append(b.errors[field], message)
}

// AddSummaryError appends a form-level error.
func (b *Bag) AddSummaryError(message string) {
	b.AddError(SummaryKey, message)
}

// AddSummaryErrorForProperty records the message both as a summary error and
// against the named field.
func (b *Bag) AddSummaryErrorForProperty(field, message string) {
	b.AddSummaryError(message)
	b.AddError(field, message)
}

// Valid reports whether no errors have been recorded.
func (b *Bag) Valid() bool {
	return len(b.errors) == 0
}

// Errors returns the field-to-messages mapping. Callers must not mutate it.
func (b *Bag) Errors() map[string][]string {
	return b.errors
}

// FieldErrors returns the messages recorded against a single field.
func (b *Bag) FieldErrors(field string) []string {
	return b.errors[field]
}

// Merge adds every entry of other into the bag. Existing messages for a field
// are kept and the merged ones appended.
func (b *Bag) Merge(other map[string][]string) {
	for field, messages := range other {
		for _, message := range messages {
			b.AddError(field, message)
		}
	}
}

// From returns the request's bag, creating and attaching one if missing.
func From(c echo.Context) *Bag {
	if bag, ok := c.Get(contextKey).(*Bag); ok {
		return bag
	}
	bag := New()
	c.Set(contextKey, bag)
	return bag
}
