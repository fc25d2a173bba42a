package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/gameplay-dagger/pkg/permissions"
)

func TestSyntheticIsDeterministicPerSeed(t *testing.T) {
	a := NewSynthetic(SyntheticOptions{Seed: 3})
	b := NewSynthetic(SyntheticOptions{Seed: 3})
	for i := 0; i < 50; i++ {
		sa, sb := a.Poll(), b.Poll()
		assert.Equal(t, sa, sb)
		assert.GreaterOrEqual(t, sa.DeltaX, -40)
		assert.LessOrEqual(t, sa.DeltaX, 40)
	}
	assert.Equal(t, 50, a.Polls())
}

func TestSyntheticCancelAfter(t *testing.T) {
	s := NewSynthetic(SyntheticOptions{CancelAfter: 2})
	assert.False(t, s.Asserted())
	s.Poll()
	assert.False(t, s.Asserted())
	s.Poll()
	assert.True(t, s.Asserted())

	never := NewSynthetic(SyntheticOptions{})
	for i := 0; i < 10; i++ {
		never.Poll()
	}
	assert.False(t, never.Asserted())
}

func TestSyntheticResetRearmsCancel(t *testing.T) {
	s := NewSynthetic(SyntheticOptions{CancelAfter: 2})
	s.Poll()
	s.Poll()
	require.True(t, s.Asserted())

	var r Resetter = s
	r.Reset()
	assert.False(t, s.Asserted())
	assert.Zero(t, s.Polls())
	s.Poll()
	s.Poll()
	assert.True(t, s.Asserted())
}

func TestSyntheticFrameGeometry(t *testing.T) {
	s := NewSynthetic(SyntheticOptions{Width: 32, Height: 24})
	img, err := s.CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
	require.NoError(t, s.Close())
}

func TestCancelFunc(t *testing.T) {
	calls := 0
	var sig CancelSignal = CancelFunc(func() bool {
		calls++
		return calls > 1
	})
	assert.False(t, sig.Asserted())
	assert.True(t, sig.Asserted())
}

func TestDetectEnvironmentReportsBackend(t *testing.T) {
	env := detectEnvironment(func(key string) (string, bool) {
		switch key {
		case permissions.EnvScreenCapture, permissions.EnvInputHooks:
			return "granted", true
		}
		return "", false
	})
	assert.Equal(t, backendName, env.Backend)
	assert.True(t, env.Available)
	assert.NotEmpty(t, env.Message)
}
