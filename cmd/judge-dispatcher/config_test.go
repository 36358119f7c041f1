package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"judgehub/internal/dispatch/pool"
	"judgehub/internal/dispatch/repository"
	"judgehub/internal/dispatch/service"

	"github.com/segmentio/kafka-go"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

const minimalConfig = `
database:
  dsn: "u:p@tcp(db:3306)/judge"
redis:
  addr: "redis:6379"
kafka:
  brokers: ["kafka:9092"]
judge:
  token: "secret"
`

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := loadAppConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Kafka.DispatchTopic != service.DefaultDispatchTopic || cfg.Kafka.ConsumerGroup != defaultConsumerGroup {
		t.Fatalf("unexpected kafka defaults: %+v", cfg.Kafka)
	}
	if cfg.Judge.HeartbeatTolerance != pool.DefaultHeartbeatTolerance || cfg.Judge.TaskPerCore != pool.DefaultTaskPerCore {
		t.Fatalf("unexpected judge defaults: %+v", cfg.Judge)
	}
	if cfg.Judge.MaxDiffEntries != 20 {
		t.Fatalf("expected max diff entries 20, got %d", cfg.Judge.MaxDiffEntries)
	}
	if cfg.Rank.ChangeThreshold != repository.DefaultRankChangeThreshold || cfg.Rank.Penalty != 20*time.Minute {
		t.Fatalf("unexpected rank defaults: %+v", cfg.Rank)
	}
	if cfg.Redis.PoolSize == 0 || cfg.Database.MaxOpenConnections == 0 {
		t.Fatalf("expected pool defaults applied")
	}
}

func TestLoadAppConfigOverrides(t *testing.T) {
	body := minimalConfig + `
rank:
  changeThreshold: 2
  snapshotTTL: 1m
languages:
  - name: Go
    config:
      run:
        command: "{exe_path}"
`
	cfg, err := loadAppConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Rank.ChangeThreshold != 2 || cfg.Rank.SnapshotTTL != time.Minute {
		t.Fatalf("expected inline rank settings, got %+v", cfg.Rank)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0].Config.Run.Command != "{exe_path}" {
		t.Fatalf("unexpected languages: %+v", cfg.Languages)
	}
}

func TestLoadAppConfigRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		wantErr string
	}{
		{name: "dsn", drop: `  dsn: "u:p@tcp(db:3306)/judge"`, wantErr: "database dsn"},
		{name: "redis", drop: `  addr: "redis:6379"`, wantErr: "redis addr"},
		{name: "kafka", drop: `  brokers: ["kafka:9092"]`, wantErr: "kafka brokers"},
		{name: "token", drop: `  token: "secret"`, wantErr: "judge token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(minimalConfig, tt.drop, "", 1)
			_, err := loadAppConfig(writeConfig(t, body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]kafka.Compression{
		"gzip":   kafka.Gzip,
		"SNAPPY": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
		"":       kafka.Compression(0),
	}
	for raw, want := range tests {
		if got := parseCompression(raw); got != want {
			t.Fatalf("%q: expected %v, got %v", raw, want, got)
		}
	}
}
