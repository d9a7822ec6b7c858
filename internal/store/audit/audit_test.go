package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndTrail(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Record(ctx, "trace-1", "CANDIDATE", "mintA", map[string]any{"pool": "p"}))
	require.NoError(t, l.Record(ctx, "trace-1", "RISK_CHECKED", "mintA", map[string]any{"passed": true}))
	require.NoError(t, l.Record(ctx, "trace-2", "CANDIDATE", "mintB", nil))

	trail, err := l.Trail(ctx, "trace-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "CANDIDATE", trail[0].Stage)
	assert.Equal(t, "RISK_CHECKED", trail[1].Stage)
	assert.Contains(t, trail[1].Detail, `"passed":true`)

	empty, err := l.Trail(ctx, "trace-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
