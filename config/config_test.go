package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwrk-planet/relay-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("CONFIG_PATH", path)
}

func Test_LoadConfig_Minimal_With_Defaults(t *testing.T) {
	req := require.New(t)
	writeConfig(t, `
http:
  addr: ":8080"
storage:
  inMemory: true
access:
  allowDev: true
`)

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal(":8080", cfg.HTTP.Addr)
	req.Equal("./public", cfg.HTTP.AssetsDir)
	req.Equal("relay-service", cfg.Logging.Service)
	req.Equal("dev", cfg.Logging.Env)
	req.Equal("std", cfg.Logging.Backend)
	req.Equal(200, cfg.Room.HistoryLimit)
	req.Equal("default_salt", cfg.Identity.Salt)
	req.Equal("X-JA4", cfg.Identity.FingerprintHeader)
	req.Equal(domain.DefaultRetention, cfg.RetentionWindow())
}

func Test_LoadConfig_Full(t *testing.T) {
	req := require.New(t)
	writeConfig(t, `
http:
  addr: ":9090"
  assetsDir: "/srv/public"
logging:
  env: "prod"
  backend: "zap"
storage:
  dir: "/var/lib/relay"
room:
  retention: "24h"
  historyLimit: 50
identity:
  salt: "s3cret"
  fingerprintHeader: "X-Edge-JA4"
access:
  allowedOrigin: "https://chat.example.com"
`)

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal(24*time.Hour, cfg.RetentionWindow())
	req.Equal(50, cfg.Room.HistoryLimit)
	req.Equal("s3cret", cfg.Identity.Salt)
	req.Equal("X-Edge-JA4", cfg.Identity.FingerprintHeader)
	req.Equal("https://chat.example.com", cfg.Access.AllowedOrigin)
	req.False(cfg.Access.AllowDev)
}

func Test_LoadConfig_Requires_Addr(t *testing.T) {
	req := require.New(t)
	writeConfig(t, `
storage:
  inMemory: true
access:
  allowDev: true
`)

	_, err := LoadConfig()
	req.ErrorContains(err, "http.addr")
}

func Test_LoadConfig_Requires_Origin_Without_Dev_Bypass(t *testing.T) {
	req := require.New(t)
	writeConfig(t, `
http:
  addr: ":8080"
storage:
  inMemory: true
`)

	_, err := LoadConfig()
	req.ErrorContains(err, "access.allowedOrigin")
}

func Test_LoadConfig_Requires_Storage_Dir_Or_InMemory(t *testing.T) {
	req := require.New(t)
	writeConfig(t, `
http:
  addr: ":8080"
access:
  allowDev: true
`)

	_, err := LoadConfig()
	req.ErrorContains(err, "storage.dir")
}

func Test_LoadConfig_Bad_Retention_Falls_Back(t *testing.T) {
	req := require.New(t)
	writeConfig(t, `
http:
  addr: ":8080"
storage:
  inMemory: true
access:
  allowDev: true
room:
  retention: "not-a-duration"
`)

	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal(domain.DefaultRetention, cfg.RetentionWindow())
}

func Test_LoadConfig_Missing_File(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	req.Error(err)
}
