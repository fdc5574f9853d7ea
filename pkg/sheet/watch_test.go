package sheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(seen *[]any) func(any) error {
	return func(v any) error {
		*seen = append(*seen, v)
		return nil
	}
}

func TestWatch(t *testing.T) {
	s := mustParse(t, orderSheet)

	var seen []any
	stop, err := s.Watch("total", collect(&seen))
	require.NoError(t, err)

	require.NoError(t, s.Set("qty", 4))
	require.NoError(t, s.Set("qty", 4))
	stop()
	require.NoError(t, s.Set("qty", 5))

	assert.Equal(t, []any{30, 40}, seen)
	stop()
}

func TestWatchSkipsUnchangedResults(t *testing.T) {
	s := mustParse(t, orderSheet)

	var seen []any
	stop, err := s.Watch("shipping", collect(&seen), SkipCurrent())
	require.NoError(t, err)
	defer stop()

	require.NoError(t, s.Set("qty", 4))
	require.NoError(t, s.Set("qty", 6))
	require.NoError(t, s.Set("qty", 1))

	assert.Equal(t, []any{0, 5}, seen)
}

func TestWatchOnce(t *testing.T) {
	s := mustParse(t, orderSheet)

	var seen []any
	_, err := s.Watch("total", collect(&seen), SkipCurrent(), WatchOnce())
	require.NoError(t, err)

	require.NoError(t, s.Set("qty", 4))
	require.NoError(t, s.Set("qty", 5))

	assert.Equal(t, []any{40}, seen)
}

func TestWatchWhen(t *testing.T) {
	s := mustParse(t, orderSheet)
	require.NoError(t, s.DefineInput("live", false))

	live, err := s.WatchWhen("live")
	require.NoError(t, err)

	var seen []any
	stop, err := s.Watch("total", collect(&seen), live)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, s.Set("qty", 4))
	assert.Empty(t, seen)

	require.NoError(t, s.Set("live", true))
	require.NoError(t, s.Set("qty", 5))
	require.NoError(t, s.Set("live", false))
	require.NoError(t, s.Set("qty", 6))

	assert.Equal(t, []any{40, 50}, seen)
}

func TestWatchErrors(t *testing.T) {
	s := mustParse(t, orderSheet)

	_, err := s.Watch("missing", collect(new([]any)))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.WatchWhen("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	errNope := errors.New("nope")
	stop, err := s.Watch("total", func(any) error { return errNope }, SkipCurrent())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Set("qty", 9), errNope)
	stop()

	calls := 0
	_, err = s.Watch("total", func(any) error {
		calls++
		return errNope
	})
	assert.ErrorIs(t, err, errNope)
	require.NoError(t, s.Set("qty", 10))
	assert.Equal(t, 1, calls, "a watch whose first call fails is stopped")
}
