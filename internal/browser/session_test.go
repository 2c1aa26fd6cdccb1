package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPage struct{ Page }

func countingStarter(starts, stops *int, err error) Starter {
	return func(ctx context.Context) (Page, func(), error) {
		*starts++
		if err != nil {
			return nil, nil, err
		}
		return &stubPage{}, func() { *stops++ }, nil
	}
}

func TestAcquireStartsOnceAndReuses(t *testing.T) {
	var starts, stops int
	s := NewSessionWithStarter(countingStarter(&starts, &stops, nil))

	p1, err := s.Acquire(context.Background())
	require.NoError(t, err)
	p2, err := s.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, starts)

	s.Release()
	assert.Equal(t, 1, stops)
}

func TestReleaseIsIdempotent(t *testing.T) {
	var starts, stops int
	s := NewSessionWithStarter(countingStarter(&starts, &stops, nil))

	assert.NotPanics(t, s.Release)
	assert.Equal(t, 0, stops)

	s = NewSessionWithStarter(countingStarter(&starts, &stops, nil))
	_, err := s.Acquire(context.Background())
	require.NoError(t, err)
	s.Release()
	s.Release()
	assert.Equal(t, 1, stops)
}

func TestAcquireFailureIsSessionUnavailable(t *testing.T) {
	var starts, stops int
	launch := errors.New("exec: google-chrome not found")
	s := NewSessionWithStarter(countingStarter(&starts, &stops, launch))

	_, err := s.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrSessionUnavailable)
	assert.Contains(t, err.Error(), "google-chrome not found")

	_, err = s.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrSessionUnavailable)
	assert.Equal(t, 2, starts)
}

func TestAcquireAfterReleaseFails(t *testing.T) {
	var starts, stops int
	s := NewSessionWithStarter(countingStarter(&starts, &stops, nil))
	s.Release()

	_, err := s.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrSessionUnavailable)
	assert.Equal(t, 0, starts)
}

func TestJSStringEscapes(t *testing.T) {
	assert.Equal(t, `"select[name*='judge']"`, jsString(`select[name*='judge']`))
	assert.Equal(t, `"a\"b"`, jsString(`a"b`))
}
