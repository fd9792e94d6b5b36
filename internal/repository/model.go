package repository

import (
	"bytes"
	"encoding/json"
)

const (
	KindObject = "object"
	KindArray  = "array"
	KindString = "string"
	KindNumber = "number"
	KindBool   = "bool"
	KindNull   = "null"
)

// TemplateRecord is one opaque template as read from the batch file, in compact JSON form.
type TemplateRecord json.RawMessage

// Kind reports the JSON kind of the record. It is only used for diagnostics.
func (r TemplateRecord) Kind() string {
	trimmed := bytes.TrimLeft(r, " \t\r\n")
	if len(trimmed) == 0 {
		return KindNull
	}
	switch trimmed[0] {
	case '{':
		return KindObject
	case '[':
		return KindArray
	case '"':
		return KindString
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	default:
		return KindNumber
	}
}

// Bytes returns the record's JSON encoding.
func (r TemplateRecord) Bytes() []byte {
	return []byte(r)
}

// MarshalJSON emits the record verbatim.
func (r TemplateRecord) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// TemplateBatch is the ordered, read-only list of records loaded from one file.
type TemplateBatch struct {
	Source  string
	records []TemplateRecord
}

// NewTemplateBatch copies records so later mutation of the input cannot leak into the batch.
func NewTemplateBatch(source string, records []TemplateRecord) *TemplateBatch {
	cloned := make([]TemplateRecord, len(records))
	for i, r := range records {
		cloned[i] = append(TemplateRecord(nil), r...)
	}
	return &TemplateBatch{Source: source, records: cloned}
}

// Len returns the number of records. A nil batch is empty.
func (b *TemplateBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.records)
}

// Records returns the records in file order.
func (b *TemplateBatch) Records() []TemplateRecord {
	if b == nil {
		return nil
	}
	out := make([]TemplateRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Equal reports whether both batches hold the same records in the same order.
// The source path is not compared.
func (b *TemplateBatch) Equal(other *TemplateBatch) bool {
	if b.Len() != other.Len() {
		return false
	}
	for i := 0; i < b.Len(); i++ {
		if !bytes.Equal(b.records[i], other.records[i]) {
			return false
		}
	}
	return true
}

// TemplateRequest is the payload shape accepted by the templates service.
// Strict loading and the stub service validate records against it.
type TemplateRequest struct {
	TemplateID              string `json:"templateId" binding:"required" validate:"required"`
	Model                   string `json:"model" binding:"required" validate:"required"`
	XPathTemplate           string `json:"xpathTemplate" binding:"required" validate:"required"`
	RequestType             string `json:"requestType" binding:"required" validate:"required"`
	IncludeDescendants      *bool  `json:"includeDescendants,omitempty"`
	MultipleQueryTemplateID string `json:"multipleQueryTemplateId,omitempty"`
	TransformParam          string `json:"transformParam,omitempty"`
}

// ApplyDefaults sets fallback values after decode.
func (t *TemplateRequest) ApplyDefaults() {
	if t.IncludeDescendants == nil {
		v := false
		t.IncludeDescendants = &v
	}
}
