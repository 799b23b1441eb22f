package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codequest/internal/testutil"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, cfg.BaseURL, DefaultBaseURL)
	testutil.AssertEqual(t, cfg.Timeout, DefaultTimeout)
	testutil.AssertEqual(t, cfg.Language, DefaultLanguage)
	testutil.AssertTrue(t, cfg.PrettyJSON != nil && *cfg.PrettyJSON, "prettyJSON defaults to true")
}

func TestLoadExpandsEnvAndResolvesSources(t *testing.T) {
	t.Setenv("CODEQUEST_API", "https://judge.example.com/")
	path := filepath.Join(t.TempDir(), "cli.yaml")
	testutil.MustNoError(t, os.WriteFile(path, []byte(
		"baseURL: ${CODEQUEST_API}\ntimeout: 2m\ndefaultLanguage: java\nsourceDir: /work/solutions\n"), 0o600))

	cfg, err := Load(path)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, cfg.BaseURL, "https://judge.example.com")
	testutil.AssertEqual(t, cfg.Timeout, 2*time.Minute)
	testutil.AssertEqual(t, cfg.Language, "java")
	testutil.AssertEqual(t, cfg.ResolveSource("two-sum/Main.java"), filepath.Join("/work/solutions", "two-sum/Main.java"))
	testutil.AssertEqual(t, cfg.ResolveSource("/tmp/x.cpp"), "/tmp/x.cpp")
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	testutil.MustNoError(t, os.WriteFile(path, []byte("baseURL: 127.0.0.1:8080\n"), 0o600))
	_, err := Load(path)
	testutil.AssertNotNil(t, err)
}
