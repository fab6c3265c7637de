package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDecodeDataUsesJSONShapes(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"paratextId": "pt01",
		"texts": bson.A{
			bson.M{"bookNum": int32(40), "chapters": bson.A{bson.M{"number": int64(1), "isValid": true}}},
		},
	})
	require.NoError(t, err)

	data, err := decodeData(raw)
	require.NoError(t, err)
	require.Equal(t, "pt01", data["paratextId"])

	texts, ok := data["texts"].([]any)
	require.True(t, ok, "arrays decode as []any, got %T", data["texts"])
	text, ok := texts[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(40), text["bookNum"])
	chapter := text["chapters"].([]any)[0].(map[string]any)
	require.Equal(t, float64(1), chapter["number"])
	require.Equal(t, true, chapter["isValid"])

	empty, err := decodeData(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
