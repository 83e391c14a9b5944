package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	svc := NewService([]string{"sh", "-c", "echo listening >&2; sleep 30"}, nil)
	require.NoError(t, svc.Start())
	assert.True(t, svc.Running())

	// Starting twice is a no-op.
	require.NoError(t, svc.Start())

	done := make(chan error, 1)
	go func() { done <- svc.Stop() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.False(t, svc.Running())
}

func TestService_ExitedOnItsOwn(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	svc := NewService([]string{"true"}, nil)
	require.NoError(t, svc.Start())

	assert.Eventually(t, func() bool { return !svc.Running() }, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, svc.Stop())
}

func TestService_Errors(t *testing.T) {
	assert.Error(t, NewService(nil, nil).Start())
	assert.Error(t, NewService([]string{"/nonexistent/detector-binary"}, nil).Start())
	assert.NoError(t, NewService([]string{"true"}, nil).Stop())
}
