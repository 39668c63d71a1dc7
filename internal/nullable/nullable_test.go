package nullable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  Field[string]   `json:"name"`
	Notes Field[string]   `json:"notes"`
	Tags  Field[[]string] `json:"tags"`
}

func TestFieldUnmarshal(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"name":"lamp","notes":null}`), &p))

	assert.True(t, p.Name.Set)
	assert.True(t, p.Name.Valid)
	assert.Equal(t, "lamp", p.Name.Value)

	assert.True(t, p.Notes.Set)
	assert.False(t, p.Notes.Valid)
	assert.Nil(t, p.Notes.Ptr())

	assert.False(t, p.Tags.Set)
}

func TestFieldMarshal(t *testing.T) {
	b, err := json.Marshal(payload{Name: Of("lamp"), Notes: Null[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"lamp","notes":null,"tags":null}`, string(b))
}

func TestPtrCopies(t *testing.T) {
	f := Of(3)
	p := f.Ptr()
	require.NotNil(t, p)
	*p = 4
	assert.Equal(t, 3, f.Value)
}
