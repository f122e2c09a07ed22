package gormlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestShortCaller(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"/home/ci/gymdesk/internal/platform/db/postgres.go:38", "internal/platform/db/postgres.go:38"},
		{"/home/ci/gymdesk/pkg/gormlog/zap.go:12", "pkg/gormlog/zap.go:12"},
		{"/a/b/c/d.go:1", "b/c/d.go:1"},
		{"/d.go:7", "d.go:7"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, shortCaller(tt.in), tt.in)
	}
}

func TestTrace_LevelsByOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core).Sugar(), false)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	require.Equal(t, 0, logs.Len(), "fast statements are silent unless verbose")

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	require.Equal(t, 0, logs.Len(), "not found is expected")

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	require.Equal(t, 1, logs.FilterMessage("gorm_trace").Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 1, logs.FilterMessage("gorm_slow").Len())
}
