package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.toml")
	data := `
[session]
max_concurrent = 7
output_dir = "reports"

[storage]
backend = "s3"
bucket = "invoices"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_CONCURRENT_TASKS", "4")
	t.Setenv("TIMEOUT_SECONDS", "90")
	t.Setenv("MAX_FILE_SIZE_MB", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want env override 4", cfg.Session.MaxConcurrent)
	}
	if cfg.Session.OutputDir != "reports" {
		t.Errorf("OutputDir = %q", cfg.Session.OutputDir)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.Bucket != "invoices" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Extraction.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", cfg.Extraction.Timeout)
	}
	if cfg.Session.MaxFileBytes != 5<<20 {
		t.Errorf("MaxFileBytes = %d", cfg.Session.MaxFileBytes)
	}
	if cfg.Session.MaxFiles != 10 {
		t.Errorf("MaxFiles default = %d", cfg.Session.MaxFiles)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Extraction.GCPProject = "proj"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}

	bad := defaultConfig()
	bad.Extraction.Provider = "mystery"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("provider: %v", err)
	}

	noProject := defaultConfig()
	if err := noProject.Validate(); err == nil {
		t.Fatal("gemini without a project must fail")
	}

	noBucket := defaultConfig()
	noBucket.Extraction.Provider = "openai"
	noBucket.Storage.Backend = "gcs"
	if err := noBucket.Validate(); err == nil {
		t.Fatal("gcs without a bucket must fail")
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", NewAppError("SESSION_NOT_FOUND", "Session not found", ErrNotFound), codes.NotFound},
		{"invalid", NewAppError("TOO_MANY_FILES", "Too many files. Max 10.", ErrInvalidInput), codes.InvalidArgument},
		{"validation", NewValidator().Field("owner_id", "", Required).Err(), codes.InvalidArgument},
		{"passthrough", status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{"other", errors.New("disk full"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(ToStatus(tc.err)); got != tc.want {
				t.Fatalf("code = %v, want %v", got, tc.want)
			}
		})
	}
	if ToStatus(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if msg := status.Convert(ToStatus(NewAppError("X", "Too many files. Max 10.", ErrInvalidInput))).Message(); msg != "Too many files. Max 10." {
		t.Fatalf("message = %q", msg)
	}
}

func TestPathSegment(t *testing.T) {
	for _, v := range []string{"..", "a/b", `a\b`, "."} {
		if PathSegment("id", v) == nil {
			t.Errorf("%q accepted", v)
		}
	}
	if PathSegment("id", "session-1") != nil {
		t.Error("plain id rejected")
	}
}
