package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	t.Parallel()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}

	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
}

func TestNewAtRoundTripsTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 10, 14, 0, 0, 123_000_000, time.UTC)
	got, err := Time(NewAt(at))

	require.NoError(t, err)
	assert.True(t, at.Equal(got), "got %s", got)
}

func TestTimeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
