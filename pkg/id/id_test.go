package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: NewAt with other timestamps resets the monotonic run.
func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNewAtCarriesBarTime(t *testing.T) {
	t.Parallel()

	bar := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	s := NewAt(bar)
	require.Len(t, s, 26)

	got, err := Time(s)
	require.NoError(t, err)
	assert.True(t, bar.Equal(got))

	assert.Less(t, NewAt(bar), NewAt(bar.Add(time.Hour)))
}

func TestTimeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
