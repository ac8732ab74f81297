package builtins

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAbs(t *testing.T) {
	v, err := Evaluate("abs", int64(-5))
	require.NoError(t, err)
	require.Equal(t, int64(5), v)

	v, err = Evaluate("abs", -2.5)
	require.NoError(t, err)
	require.Equal(t, 2.5, v)
}

func TestFloorCeil(t *testing.T) {
	v, err := Evaluate("floor", 3.7)
	require.NoError(t, err)
	require.Equal(t, int64(3), v)

	v, err = Evaluate("ceil", 3.2)
	require.NoError(t, err)
	require.Equal(t, int64(4), v)
}

func TestMaxMin(t *testing.T) {
	v, err := Evaluate("max", []interface{}{int64(1), int64(9), int64(3)})
	require.NoError(t, err)
	require.Equal(t, int64(9), v)

	v, err = Evaluate("min", []interface{}{int64(1), int64(9), int64(3)})
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	_, err = Evaluate("max", []interface{}{})
	require.Error(t, err)
}

func TestJoinSplit(t *testing.T) {
	v, err := Evaluate("join", []interface{}{"-", []interface{}{"a", "b", "c"}})
	require.NoError(t, err)
	require.Equal(t, "a-b-c", v)

	v, err = Evaluate("split", []interface{}{",", "a,b,c"})
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b", "c"}, v)
}

func TestSelect(t *testing.T) {
	v, err := Evaluate("select", []interface{}{int64(1), []interface{}{"a", "b", "c"}})
	require.NoError(t, err)
	require.Equal(t, "b", v)

	_, err = Evaluate("select", []interface{}{int64(5), []interface{}{"a"}})
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	require.Equal(t, "IndexError", berr.Code)
}

func TestStringLenAndSubstring(t *testing.T) {
	v, err := Evaluate("stringLen", "héllo")
	require.NoError(t, err)
	require.Equal(t, int64(5), v)

	v, err = Evaluate("substring", []interface{}{"héllo world", int64(0), int64(5)})
	require.NoError(t, err)
	require.Equal(t, "héllo", v)

	v, err = Evaluate("substring", []interface{}{"abc", int64(1), int64(100)})
	require.NoError(t, err)
	require.Equal(t, "bc", v)
}

func TestToJSON(t *testing.T) {
	v, err := Evaluate("toJSON", NewOrderedMap(
		[]string{"name", "location"},
		map[string]interface{}{"name": "my-bucket", "location": "US"},
	))
	require.NoError(t, err)
	require.Equal(t, `{"name":"my-bucket","location":"US"}`, v)
}

func TestBase64RoundTrip(t *testing.T) {
	v, err := Evaluate("toBase64", "hello")
	require.NoError(t, err)
	require.Equal(t, "aGVsbG8=", v)

	v, err = Evaluate("fromBase64", "aGVsbG8=")
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	_, err = Evaluate("fromBase64", "not-valid-base64!!")
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	require.Equal(t, "DecodeError", berr.Code)
}

func TestSecretWrapsValue(t *testing.T) {
	v, err := Evaluate("secret", "shh")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"__secret": true, "value": "shh"}, v)
}

func TestUUIDAndRandomStringShapes(t *testing.T) {
	v, err := Evaluate("uuid", "")
	require.NoError(t, err)
	require.Len(t, v, 36)

	v, err = Evaluate("randomString", int64(12))
	require.NoError(t, err)
	require.Len(t, v, 12)
}

func TestTimeUtcLayout(t *testing.T) {
	v, err := Evaluate("timeUtc", "2006-01-02T15:04:05Z07:00")
	require.NoError(t, err)
	require.IsType(t, "", v)
}

func TestIsNonDeterministic(t *testing.T) {
	require.True(t, IsNonDeterministic("uuid"))
	require.True(t, IsNonDeterministic("randomString"))
	require.True(t, IsNonDeterministic("timeUtc"))
	require.False(t, IsNonDeterministic("abs"))
}

func TestHasAndNames(t *testing.T) {
	require.True(t, Has("toBase64"))
	require.False(t, Has("notARealBuiltin"))
	names := Names()
	require.Contains(t, names, "abs")
	require.Contains(t, names, "uuid")
}
