package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDPrefersEnvironment(t *testing.T) {
	t.Setenv("FASTBAG_INSTANCE_ID", " worker-7 ")
	require.Equal(t, "worker-7", ID("worker"))
}

func TestIDFallsBackToHost(t *testing.T) {
	t.Setenv("FASTBAG_INSTANCE_ID", "")
	require.NotEmpty(t, ID("cron-worker"))
}
