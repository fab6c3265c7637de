package json0

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

func TestDecodeKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind Kind
		path objpath.Path
	}{
		{`{"p":["shortName"],"oi":"ABC"}`, KindSet, objpath.Path{"shortName"}},
		{`{"p":["shortName"],"od":"ABC","oi":"XYZ"}`, KindSet, objpath.Path{"shortName"}},
		{`{"p":["shortName"],"od":"ABC"}`, KindUnset, objpath.Path{"shortName"}},
		{`{"p":["texts",0],"li":{"bookNum":40}}`, KindListInsert, objpath.Path{"texts", 0}},
		{`{"p":["texts",1],"ld":{"bookNum":41}}`, KindListDelete, objpath.Path{"texts", 1}},
		{`{"p":["texts",1],"ld":{},"li":{}}`, KindListReplace, objpath.Path{"texts", 1}},
		{`{"p":["texts",1],"lm":0}`, KindListMove, objpath.Path{"texts", 1}},
		{`{"p":["sync","queuedCount"],"na":1}`, KindNumberAdd, objpath.Path{"sync", "queuedCount"}},
		{`{"p":["name",3],"si":"x"}`, KindStringInsert, objpath.Path{"name", 3}},
		{`{"p":["name",3],"sd":"x"}`, KindStringDelete, objpath.Path{"name", 3}},
		{`{"p":["notes"],"t":"rich-text","o":[{"insert":"x"}]}`, KindSubtype, objpath.Path{"notes"}},
		{`{"p":["x"]}`, KindNoop, objpath.Path{"x"}},
		{`{"p":["x"],"oi":null}`, KindSet, objpath.Path{"x"}},
	}
	for _, tc := range cases {
		ops, err := Decode([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		require.Len(t, ops, 1)
		assert.Equal(t, tc.kind, ops[0].Kind(), tc.raw)
		p, err := ops[0].Path()
		require.NoError(t, err)
		assert.Equal(t, tc.path, p, tc.raw)
	}
}

func TestDecodeBatch(t *testing.T) {
	ops, err := Decode([]byte(` [{"p":["paratextId"],"oi":"pt01"},{"p":["texts",0,"chapters",2,"isValid"],"oi":false}] `))
	require.NoError(t, err)
	require.Len(t, ops, 2)

	paths, err := Paths(ops)
	require.NoError(t, err)
	assert.Equal(t, objpath.Path{"texts", 0, "chapters", 2, "isValid"}, paths[1])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		``,
		`null`,
		`{"oi":1}`,
		`{"p":["a",1.5],"oi":1}`,
		`{"p":["a",-1],"oi":1}`,
		`{"p":[true],"oi":1}`,
		`{"p":[],"od":{},"oi":{"paratextId":"x"}}`,
		`{"p":["texts",1e20],"oi":1}`,
		`{"p":["texts",9223372036854775807],"oi":1}`,
		`[{"p":["a"],"oi":1},{"oi":2}]`,
		`{"p":`,
	} {
		_, err := Decode([]byte(raw))
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrInvalidOp), raw)
	}
}

func TestPathBounds(t *testing.T) {
	_, err := Op{P: []any{"texts", float64(1 << 30)}}.Path()
	require.NoError(t, err)

	for _, elem := range []any{1e20, float64(math.MaxInt), uint64(math.MaxUint64), -1} {
		_, err := Op{P: []any{"texts", elem}}.Path()
		assert.True(t, errors.Is(err, ErrInvalidOp), "%v", elem)
	}
	_, err = Op{}.Path()
	assert.True(t, errors.Is(err, ErrInvalidOp))
}
