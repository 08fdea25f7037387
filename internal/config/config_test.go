package config

import (
	"os"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	// Switch to a temp directory to avoid loading a real .env
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}
	tmpDir := t.TempDir()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not chdir to temp dir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Fatalf("could not chdir back to original dir: %v", err)
		}
	})
}

func requiredVars() map[string]string {
	return map[string]string{
		"MARIADB_DSN":               "user:pass@tcp(localhost:3306)/db",
		"MARIADB_MAX_OPEN_CONN":     "10",
		"MARIADB_MAX_IDLE_CONNS":    "5",
		"MARIADB_CONN_MAX_LIFETIME": "30",
		"SERVER_PORT":               "8080",
	}
}

func TestLoad_Success(t *testing.T) {
	chdirTemp(t)

	for k, v := range requiredVars() {
		t.Setenv(k, v)
	}
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("ARCHIVE_URL", "https://danbooru.example")
	t.Setenv("XHS_COOKIE", "session=abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MariaDBDSN != "user:pass@tcp(localhost:3306)/db" {
		t.Errorf("unexpected MariaDBDSN %q", cfg.MariaDBDSN)
	}
	if cfg.MaxOpenConns != 10 || cfg.MaxIdleConns != 5 {
		t.Errorf("unexpected pool settings: %d/%d", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 30*time.Second {
		t.Errorf("ConnMaxLifetime: expected %v, got %v", 30*time.Second, cfg.ConnMaxLifetime)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort: expected 8080, got %d", cfg.ServerPort)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected RedisAddr %q", cfg.RedisAddr)
	}
	if cfg.ArchiveURL != "https://danbooru.example" {
		t.Errorf("unexpected ArchiveURL %q", cfg.ArchiveURL)
	}
	if cfg.XhsCookie != "session=abc" {
		t.Errorf("unexpected XhsCookie %q", cfg.XhsCookie)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	for k, v := range requiredVars() {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Retries != 3 {
		t.Errorf("Retries: expected 3, got %d", cfg.Retries)
	}
	if cfg.RequestTimeout != 20*time.Second {
		t.Errorf("RequestTimeout: expected %v, got %v", 20*time.Second, cfg.RequestTimeout)
	}
	if cfg.MaxParallelDownload != 5 {
		t.Errorf("MaxParallelDownload: expected 5, got %d", cfg.MaxParallelDownload)
	}
	if cfg.LocalDir != "archives" {
		t.Errorf("LocalDir: expected %q, got %q", "archives", cfg.LocalDir)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected RedisAddr to default empty, got %q", cfg.RedisAddr)
	}
}

func TestLoad_SiteTemplates(t *testing.T) {
	chdirTemp(t)

	for k, v := range requiredVars() {
		t.Setenv(k, v)
	}
	t.Setenv("DOUYIN_FILE_PATH", "douyin/{user}")
	t.Setenv("DOUYIN_FILE_NAME", "{id_str} - {user}")
	t.Setenv("XHS_FILE_PATH", "xhs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.DouyinFilePath != "douyin/{user}" {
		t.Errorf("DouyinFilePath: got %q", cfg.DouyinFilePath)
	}
	if cfg.DouyinFileName != "{id_str} - {user}" {
		t.Errorf("DouyinFileName: got %q", cfg.DouyinFileName)
	}
	if cfg.XhsFilePath != "xhs" {
		t.Errorf("XhsFilePath: got %q", cfg.XhsFilePath)
	}
	if cfg.BilibiliFilePath != "" {
		t.Errorf("expected BilibiliFilePath to default empty, got %q", cfg.BilibiliFilePath)
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	cases := []struct {
		missingKey string
		wantErr    string
	}{
		{"MARIADB_DSN", "MARIADB_DSN is required"},
		{"MARIADB_MAX_OPEN_CONN", "MARIADB_MAX_OPEN_CONN is required"},
		{"MARIADB_MAX_IDLE_CONNS", "MARIADB_MAX_IDLE_CONNS is required"},
		{"MARIADB_CONN_MAX_LIFETIME", "MARIADB_CONN_MAX_LIFETIME is required"},
		{"SERVER_PORT", "SERVER_PORT is required"},
	}

	for _, tc := range cases {
		t.Run(tc.missingKey, func(t *testing.T) {
			chdirTemp(t)

			for k, v := range requiredVars() {
				if k == tc.missingKey {
					if err := os.Unsetenv(k); err != nil {
						t.Fatalf("could not unset key %s in env: %v", k, err)
					}
				} else {
					t.Setenv(k, v)
				}
			}

			cfg, err := Load()
			if err == nil {
				t.Fatalf("expected error for missing %s, got nil", tc.missingKey)
			}
			if err.Error() != tc.wantErr {
				t.Errorf("error = %q; want %q", err.Error(), tc.wantErr)
			}
			if cfg != nil {
				t.Errorf("expected cfg nil on error, got %#v", cfg)
			}
		})
	}
}
