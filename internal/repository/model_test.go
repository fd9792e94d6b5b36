package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateRecord_Kind(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`: KindObject,
		` [1]`:    KindArray,
		`"s"`:     KindString,
		`-1.5`:    KindNumber,
		`12`:      KindNumber,
		`true`:    KindBool,
		`false`:   KindBool,
		`null`:    KindNull,
		``:        KindNull,
	}
	for raw, want := range tests {
		assert.Equal(t, want, TemplateRecord(raw).Kind(), "kind of %q", raw)
	}
}

func TestTemplateRecord_MarshalJSON(t *testing.T) {
	payload, err := json.Marshal([]TemplateRecord{TemplateRecord(`{"name":"A"}`), nil})
	assert.NoError(t, err)
	assert.JSONEq(t, `[{"name":"A"},null]`, string(payload))
}

func TestNewTemplateBatch_CopiesInput(t *testing.T) {
	input := []TemplateRecord{TemplateRecord(`{"name":"A"}`)}
	batch := NewTemplateBatch("in.json", input)

	input[0][2] = 'X'
	assert.Equal(t, `{"name":"A"}`, string(batch.Records()[0]))

	out := batch.Records()
	out[0] = TemplateRecord(`{}`)
	assert.Equal(t, `{"name":"A"}`, string(batch.Records()[0]))
}

func TestTemplateBatch_NilIsEmpty(t *testing.T) {
	var batch *TemplateBatch
	assert.Equal(t, 0, batch.Len())
	assert.Nil(t, batch.Records())
}

func TestTemplateBatch_Equal(t *testing.T) {
	a := NewTemplateBatch("a.json", []TemplateRecord{TemplateRecord(`{"name":"A"}`), TemplateRecord(`1`)})
	b := NewTemplateBatch("b.json", []TemplateRecord{TemplateRecord(`{"name":"A"}`), TemplateRecord(`1`)})
	reordered := NewTemplateBatch("a.json", []TemplateRecord{TemplateRecord(`1`), TemplateRecord(`{"name":"A"}`)})
	shorter := NewTemplateBatch("a.json", []TemplateRecord{TemplateRecord(`{"name":"A"}`)})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(reordered))
	assert.False(t, a.Equal(shorter))
	assert.False(t, a.Equal(nil))

	var empty *TemplateBatch
	assert.True(t, empty.Equal(NewTemplateBatch("x", nil)))
}

func TestTemplateRequest_ApplyDefaults(t *testing.T) {
	req := TemplateRequest{TemplateID: "t1"}
	req.ApplyDefaults()
	if assert.NotNil(t, req.IncludeDescendants) {
		assert.False(t, *req.IncludeDescendants)
	}

	yes := true
	req = TemplateRequest{IncludeDescendants: &yes}
	req.ApplyDefaults()
	assert.True(t, *req.IncludeDescendants)
}
