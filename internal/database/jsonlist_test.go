package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONList_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want JSONList[string]
	}{
		{name: "null", src: nil, want: JSONList[string]{}},
		{name: "empty string", src: "", want: JSONList[string]{}},
		{name: "empty bytes", src: []byte{}, want: JSONList[string]{}},
		{name: "json null text", src: "null", want: JSONList[string]{}},
		{name: "json null bytes", src: []byte("null"), want: JSONList[string]{}},
		{name: "string", src: `["Drama","Crime"]`, want: JSONList[string]{"Drama", "Crime"}},
		{name: "bytes keep duplicates", src: []byte(`["a","b","a"]`), want: JSONList[string]{"a", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l JSONList[string]
			require.NoError(t, l.Scan(tt.src))
			assert.NotNil(t, l)
			assert.Equal(t, tt.want, l)
		})
	}
}

func TestJSONList_ScanErrors(t *testing.T) {
	var l JSONList[string]
	assert.Error(t, l.Scan(42))
	assert.Error(t, l.Scan("not json"))
}

func TestJSONList_Value(t *testing.T) {
	v, err := JSONList[string](nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JSONList[string]{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JSONList[Season]{{SeasonNumber: 1, SeasonName: "Season 1"}}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"season_number":1,"season_name":"Season 1"}]`, v.(string))
}

func TestColumns(t *testing.T) {
	cols, err := Columns[Book]()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"id", "title", "author", "pages", "year", "genres", "poster_path",
		"plot", "isbn", "user_rating", "section", "last_update", "created_at",
	}, cols)

	cols, err = Columns[Movie]()
	require.NoError(t, err)
	assert.Equal(t, "id", cols[0])
	assert.Contains(t, cols, "ratings_updated_at")
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"movies": KindMovie,
		"tv":     KindSeries,
		"game":   KindGame,
		"manga":  KindManga,
		"books":  KindBook,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("podcast")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
