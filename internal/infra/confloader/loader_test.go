package confloader

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Agent struct {
			Socket    string  `koanf:"socket"`
			RateLimit float64 `koanf:"rate_limit"`
		} `koanf:"agent"`
	} `koanf:"server"`
	Snapshot struct {
		VoteTimeout time.Duration `koanf:"vote_timeout"`
	} `koanf:"snapshot"`
	Features []string `koanf:"features"`
}

func defaults() *testConfig {
	cfg := &testConfig{}
	cfg.Server.Agent.Socket = "/run/agent.sock"
	cfg.Server.Agent.RateLimit = 50
	cfg.Snapshot.VoteTimeout = time.Minute
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
snapshot:
  vote_timeout: 90s
`)
	cfg := defaults()
	l := NewLoader(WithEnvPrefix("SCTEST1_"), WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Snapshot.VoteTimeout != 90*time.Second {
		t.Errorf("VoteTimeout = %v, want 90s", cfg.Snapshot.VoteTimeout)
	}
	if cfg.Server.Agent.Socket != "/run/agent.sock" {
		t.Errorf("Socket = %q, default lost", cfg.Server.Agent.Socket)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() = false after Load")
	}
}

func TestLoader_Load_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  agent:
    socket: /from/file.sock
    rate_limit: 5
`)
	t.Setenv("SCTEST2_SERVER_AGENT_SOCKET", "/from/env.sock")
	t.Setenv("SCTEST2_SERVER_AGENT_RATE_LIMIT", "7.5")
	t.Setenv("SCTEST2_SNAPSHOT_VOTE_TIMEOUT", "2m")
	t.Setenv("SCTEST2_FEATURES", "snapshot,all_disk_snapshot")

	cfg := defaults()
	l := NewLoader(WithEnvPrefix("SCTEST2_"), WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Agent.Socket != "/from/env.sock" {
		t.Errorf("Socket = %q, want env value", cfg.Server.Agent.Socket)
	}
	if cfg.Server.Agent.RateLimit != 7.5 {
		t.Errorf("RateLimit = %v, want 7.5", cfg.Server.Agent.RateLimit)
	}
	if cfg.Snapshot.VoteTimeout != 2*time.Minute {
		t.Errorf("VoteTimeout = %v, want 2m", cfg.Snapshot.VoteTimeout)
	}
	if len(cfg.Features) != 2 || cfg.Features[1] != "all_disk_snapshot" {
		t.Errorf("Features = %v", cfg.Features)
	}
}

func TestLoader_EnvKeyResolution(t *testing.T) {
	l := NewLoader()
	l.learnKeys(&testConfig{})

	tests := []struct {
		env  string
		want string
	}{
		{"SNAPCOORD_SERVER_AGENT_RATE_LIMIT", "server.agent.rate_limit"},
		{"SNAPCOORD_SNAPSHOT_VOTE_TIMEOUT", "snapshot.vote_timeout"},
		{"SNAPCOORD_UNKNOWN_KEY", "unknown.key"},
	}
	for _, tt := range tests {
		if got := l.envKey(tt.env); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoader_EnvLists(t *testing.T) {
	l := NewLoader()
	l.learnKeys(&testConfig{})

	tests := []struct {
		name  string
		env   string
		value string
		want  any
	}{
		{"list split", "SNAPCOORD_FEATURES", "snapshot, all_disk_snapshot,", []string{"snapshot", "all_disk_snapshot"}},
		{"list single", "SNAPCOORD_FEATURES", "snapshot", []string{"snapshot"}},
		{"scalar kept", "SNAPCOORD_SERVER_AGENT_SOCKET", "/a,b.sock", "/a,b.sock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := l.envValue(tt.env, tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("envValue(%q, %q) = %#v, want %#v", tt.env, tt.value, got, tt.want)
			}
		})
	}
}

func TestLoader_Load_Overrides(t *testing.T) {
	path := writeConfig(t, `
server:
  agent:
    socket: /from/file.sock
`)
	t.Setenv("SCTEST4_SERVER_AGENT_SOCKET", "/from/env.sock")

	cfg := defaults()
	l := NewLoader(WithEnvPrefix("SCTEST4_"), WithConfigFile(path),
		WithOverrides(map[string]any{"server.agent.socket": "/from/flag.sock"}))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Agent.Socket != "/from/flag.sock" {
		t.Errorf("Socket = %q, want override", cfg.Server.Agent.Socket)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
}

func TestLoader_LoadMap_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  agent:
    socket: /from/file.sock
`)
	cfg := defaults()
	l := NewLoader(WithEnvPrefix("SCTEST3_"), WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		t.Fatal(err)
	}

	// Flags come last
	if err := l.LoadMap(map[string]any{"server.agent.socket": "/from/flag.sock"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Unmarshal(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Agent.Socket != "/from/flag.sock" {
		t.Errorf("Socket = %q, want flag value", cfg.Server.Agent.Socket)
	}
	if l.GetString("server.agent.socket") != "/from/flag.sock" {
		t.Errorf("GetString() = %q", l.GetString("server.agent.socket"))
	}
}

func TestLoader_Keys(t *testing.T) {
	l := NewLoader()
	_ = l.LoadMap(map[string]any{
		"a": 1,
		"b": map[string]any{"c": 2},
	})
	if len(l.Keys()) != 2 {
		t.Errorf("Keys() = %v, want 2 keys", l.Keys())
	}
	if l.GetInt("b.c") != 2 {
		t.Errorf("GetInt(b.c) = %d", l.GetInt("b.c"))
	}
	if l.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}
