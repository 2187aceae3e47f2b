package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-subtext-backend/internal/config"
	"github.com/tbourn/go-subtext-backend/internal/gencache"
	"github.com/tbourn/go-subtext-backend/internal/kv"
	"github.com/tbourn/go-subtext-backend/internal/services"
)

// TestRootSubcommands verifies all expected subcommands are registered.
func TestRootSubcommands(t *testing.T) {
	registered := make(map[string]bool)
	for _, cmd := range newRootCmd().Commands() {
		registered[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "version", "healthcheck"} {
		if !registered[want] {
			t.Errorf("subcommand %q not registered on root command", want)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version command returned error: %v", err)
	}
	if !strings.Contains(out.String(), "subtextd "+Version) {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestServe_InvalidConfigFails(t *testing.T) {
	t.Setenv("SKIP_DOTENV", "1")
	t.Setenv("STORE_DRIVER", "etcd")

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "STORE_DRIVER") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SUBTEXT_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("missing file is fine", func(t *testing.T) {
		if err := loadDotenv(filepath.Join(dir, "nope.env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("skip flag", func(t *testing.T) {
		t.Setenv("SKIP_DOTENV", "true")
		t.Setenv("SUBTEXT_TEST_VALUE", "")
		os.Unsetenv("SUBTEXT_TEST_VALUE")
		if err := loadDotenv(path); err != nil {
			t.Fatal(err)
		}
		if _, ok := os.LookupEnv("SUBTEXT_TEST_VALUE"); ok {
			t.Fatalf("file must not be loaded when SKIP_DOTENV is set")
		}
	})

	t.Run("loads values", func(t *testing.T) {
		t.Setenv("SKIP_DOTENV", "")
		t.Setenv("SUBTEXT_TEST_VALUE", "")
		os.Unsetenv("SUBTEXT_TEST_VALUE")
		if err := loadDotenv(path); err != nil {
			t.Fatal(err)
		}
		if got := os.Getenv("SUBTEXT_TEST_VALUE"); got != "from-file" {
			t.Fatalf("SUBTEXT_TEST_VALUE=%q", got)
		}
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := []struct {
		name        string
		cfg         config.StoreConfig
		wantPruners int
	}{
		{"memory", config.StoreConfig{Driver: config.StoreMemory}, 1},
		{"sqlite", config.StoreConfig{Driver: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "kv.db")}, 1},
		{"redis", config.StoreConfig{Driver: config.StoreRedis, RedisURL: "redis://" + mr.Addr() + "/0", Prefix: "subtext"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			be, err := openStore(tc.cfg)
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			defer be.close()

			if len(be.pruners) != tc.wantPruners {
				t.Fatalf("pruners=%d want %d", len(be.pruners), tc.wantPruners)
			}
			if err := be.store.Ping(ctx); err != nil {
				t.Fatalf("ping: %v", err)
			}
			if err := be.store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := be.store.Get(ctx, "k")
			if err != nil || string(got) != "v" {
				t.Fatalf("get = %q, %v", got, err)
			}
		})
	}

	if !mr.Exists("subtext:k") {
		t.Fatalf("redis store must apply the key prefix")
	}

	if _, err := openStore(config.StoreConfig{Driver: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRunJanitor_SweepsBackendOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := openStore(config.StoreConfig{Driver: config.StoreMemory})
	if err != nil {
		t.Fatal(err)
	}
	fallback := kv.NewMemoryStore()
	_ = be.store.Set(ctx, "result:aaaaaa", []byte("{}"), time.Millisecond)
	_ = fallback.Set(ctx, "result:bbbbbb", []byte("{}"), time.Millisecond)

	done := make(chan struct{})
	go func() {
		runJanitor(ctx, 5*time.Millisecond, be, zerolog.Nop())
		close(done)
	}()

	mem := be.store.(*kv.MemoryStore)
	deadline := time.Now().Add(2 * time.Second)
	for mem.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if mem.Len() != 0 {
		t.Fatalf("durable memory store not swept, len=%d", mem.Len())
	}
	if fallback.Len() != 1 {
		t.Fatalf("fallback must only expire on read, len=%d", fallback.Len())
	}
}

func TestBuildDeps_TestModeDisablesCache(t *testing.T) {
	cfg := config.Config{
		MaxTextRunes: 5000,
		MaxBodyRunes: 5000,
		CacheTTL:     time.Minute,
		ResultTTL:    time.Hour,
		Auth:         config.AuthConfig{AllowedDomains: []string{"gmail.com"}, MaxAttempts: 3, Window: time.Minute, Block: time.Minute},
		Store:        config.StoreConfig{Driver: config.StoreMemory},
	}
	store := kv.NewMemoryStore()

	deps := buildDeps(cfg, store, kv.NewMemoryStore(), zerolog.Nop())
	ts, ok := deps.Translate.(*services.TranslateService)
	if !ok {
		t.Fatalf("unexpected translate service %T", deps.Translate)
	}
	if _, ok := ts.Cache.(*gencache.Memory); !ok {
		t.Fatalf("expected memory cache, got %T", ts.Cache)
	}

	cfg.TestMode = true
	deps = buildDeps(cfg, store, kv.NewMemoryStore(), zerolog.Nop())
	ts = deps.Translate.(*services.TranslateService)
	if _, ok := ts.Cache.(gencache.Disabled); !ok {
		t.Fatalf("expected disabled cache in test mode, got %T", ts.Cache)
	}

	if h := deps.Results.Health(context.Background()); h.Driver != config.StoreMemory || !h.Durable {
		t.Fatalf("unexpected health: %+v", h)
	}
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", port)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"healthcheck"})
	if err := root.Execute(); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	if strings.TrimSpace(out.String()) != "healthy" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
