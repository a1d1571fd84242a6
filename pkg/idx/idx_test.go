package idx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.NotEmpty(t, id.String())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.False(t, id.IsZero())
}

func TestOrdering(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0).UTC())
	b := idx.NewAt(time.Unix(2, 0).UTC())

	require.Equal(t, -1, idx.Compare(a, b))
	require.Equal(t, 1, idx.Compare(b, a))
	require.Equal(t, 0, idx.Compare(a, a))
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
}

func TestMustParsePanicsOnGarbage(t *testing.T) {
	require.NotPanics(t, func() { idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV") })
	require.Panics(t, func() { idx.MustParse("not-a-ulid") })
}

func TestNewEntity(t *testing.T) {
	a := idx.NewEntity()
	b := idx.NewEntity()

	require.Len(t, a, 36)
	require.NotEqual(t, a, b)

	parsed, err := idx.ParseEntity(strings.ToUpper(a))
	require.NoError(t, err)
	require.Equal(t, a, parsed, "ParseEntity should normalise to lower case")
}

func TestParseEntityRejectsNonCanonicalForms(t *testing.T) {
	tests := []string{
		"",
		"3fa85f6457174562b3fc2c963f66afa6", // no hyphens
		"{3fa85f64-5717-4562-b3fc-2c963f66afa6}",
		"urn:uuid:3fa85f64-5717-4562-b3fc-2c963f66afa6",
		"abc123",
	}
	for _, in := range tests {
		_, err := idx.ParseEntity(in)
		require.ErrorIs(t, err, idx.ErrInvalid, in)
	}
}

func TestIsStructured(t *testing.T) {
	require.True(t, idx.IsStructured("3fa85f64-5717-4562-b3fc-2c963f66afa6"))
	require.True(t, idx.IsStructured(idx.New().String()))
	require.False(t, idx.IsStructured("abc123"))
	require.False(t, idx.IsStructured("q2V8x0bK3nGmT7yR1cLpZa9eWf4sHdJuNiOoPtQvXwY"))
}
