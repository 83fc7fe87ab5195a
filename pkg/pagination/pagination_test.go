package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+500))
}

func TestLimitWithBuffer(t *testing.T) {
	require.Equal(t, 11, LimitWithBuffer(10))
	require.Equal(t, DefaultLimit+1, LimitWithBuffer(0))
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(original.Encode())
	require.NoError(t, err)
	require.NotNil(t, parsed)
	require.True(t, parsed.CreatedAt.Equal(original.CreatedAt))
	require.Equal(t, original.ID, parsed.ID)
}

func TestParseCursorBlankMeansFirstPage(t *testing.T) {
	for _, token := range []string{"", "   "} {
		parsed, err := ParseCursor(token)
		require.NoError(t, err)
		require.Nil(t, parsed)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not-base64!!",
		"bm8tc2VwYXJhdG9y",                 // decodes without the separator
		"bm90LWEtdGltZXxhYmM=",             // bad timestamp
		"MjAyNi0wMy0xNFQwOTowMDowMFp8bm9w", // bad uuid
	}
	for _, token := range cases {
		_, err := ParseCursor(token)
		require.Error(t, err, token)
	}
}
