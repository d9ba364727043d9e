package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_KeepsInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.Set("zeta", 1)
	r.Set("alpha", "a")
	r.Set("mid", nil)
	r.Set("zeta", 2) // overwrite keeps position

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Keys())
	assert.Equal(t, "2", r.Text("zeta"))
	assert.Equal(t, "", r.Text("mid"))

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":"a","mid":null}`, string(b))
}

func TestRecord_UnmarshalPreservesOrder(t *testing.T) {
	var buf Buffer
	require.NoError(t, json.Unmarshal([]byte(`[{"b":"1","a":2.50},{"b":"x","a":null}]`), &buf))
	require.Len(t, buf, 2)
	assert.Equal(t, []string{"b", "a"}, buf.Fields())
	assert.Equal(t, "2.50", buf[0].Text("a"))
	assert.False(t, buf[1].Has("c"))
}

func TestRecord_Delete(t *testing.T) {
	r := RecordOf("a", 1, "b", 2, "c", 3)
	r.Delete("b")
	r.Delete("missing")
	assert.Equal(t, []string{"a", "c"}, r.Keys())
	assert.Equal(t, 2, r.Len())
}

func TestText(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{0.0, "0"},
		{12.5, "12.5"},
		{42, "42"},
		{int64(7), "7"},
		{json.Number("3.10"), "3.10"},
		{true, "1"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Text(c.in), "Text(%#v)", c.in)
	}
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy("1"))
	assert.True(t, Truthy(1))
	assert.True(t, Truthy(true))
	assert.False(t, Truthy("0"))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(nil))
}
