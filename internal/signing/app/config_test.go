package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 3, cfg.MaxRetries)
	require.False(t, cfg.EnforceOrder)
	require.Equal(t, 3, cfg.PreviewMaxAccess)
	require.Equal(t, 5*time.Minute, cfg.ViewTicketTTL)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SIGNING_DB_DRIVER", "Postgres")
	t.Setenv("SIGNING_ENFORCE_ORDER", "true")
	t.Setenv("SIGNING_MAX_RETRIES", "5")
	t.Setenv("PREVIEW_TTL", "90")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("PREVIEW_MAX_ACCESS", "many")

	cfg := LoadConfig()

	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.True(t, cfg.EnforceOrder)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 90*time.Minute, cfg.PreviewTTL, "bare integers are minutes")
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, 3, cfg.PreviewMaxAccess, "unparseable values fall back")
}
