package features

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"

	"github.com/couchcryptid/crop-water-service/internal/domain"
)

// Encoder maps a fitted vocabulary to dense integer codes. Codes follow sorted
// vocabulary order, so they do not depend on the order rows were read in.
// An Encoder is immutable once fitted.
type Encoder struct {
	field   string
	classes []string
	index   map[string]int
}

// FitEncoder builds an encoder over the distinct values.
func FitEncoder(field string, values []string) *Encoder {
	classes := slices.Clone(values)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	return newEncoder(field, classes)
}

func newEncoder(field string, classes []string) *Encoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &Encoder{field: field, classes: classes, index: index}
}

// Field returns the categorical field this encoder was fitted for.
func (e *Encoder) Field() string { return e.field }

// Len returns the vocabulary size.
func (e *Encoder) Len() int { return len(e.classes) }

// Classes returns a copy of the vocabulary in code order.
func (e *Encoder) Classes() []string { return slices.Clone(e.classes) }

// Encode returns the code for value, or an *domain.UnknownCategoryError when
// value was not seen at fit time.
func (e *Encoder) Encode(value string) (int, error) {
	code, ok := e.index[value]
	if !ok {
		return 0, &domain.UnknownCategoryError{Field: e.field, Value: value}
	}
	return code, nil
}

type encoderWire struct {
	Field   string
	Classes []string
}

// GobEncode implements gob.GobEncoder.
func (e *Encoder) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(encoderWire{Field: e.field, Classes: e.classes}); err != nil {
		return nil, fmt.Errorf("encode %s encoder: %w", e.field, err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (e *Encoder) GobDecode(data []byte) error {
	var w encoderWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return fmt.Errorf("decode encoder: %w", err)
	}
	*e = *newEncoder(w.Field, w.Classes)
	return nil
}
