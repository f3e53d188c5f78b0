package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/require"
)

func TestReadConfigAppliesDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ib_db:
  dsn: postgres://localhost/ib
platform:
  base_url: http://platform.local
sync:
  account_concurrency: 8
`), 0o600))
	t.Setenv("IB_COMMISSION_MAX_AGE", "2h")

	var cfg IBConfig
	require.NoError(t, cleanenv.ReadConfig(path, &cfg))

	require.Equal(t, "postgres://localhost/ib", cfg.IBDB.Dsn)
	require.Equal(t, 8, cfg.Sync.AccountConcurrency)
	require.Equal(t, "@every 5m", cfg.Sync.Schedule)
	require.Equal(t, 7*24*time.Hour, cfg.Sync.Window)
	require.Equal(t, 2*time.Hour, cfg.Commission.MaxAge)
	require.Equal(t, float64(1), cfg.Platform.VolumeScale)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers())
}
