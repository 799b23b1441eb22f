package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codequest/internal/judge/language"
	"codequest/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.MustNoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppConfigExpandsEnvAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "CQ_TEST_SECRET=from-dotenv\n")
	cfgPath := writeFile(t, dir, "server.yaml", `
store:
  driver: memory
auth:
  jwtSecret: "${CQ_TEST_SECRET}"
judge:
  baseURL: "http://localhost:2358"
`)
	t.Cleanup(func() { _ = os.Unsetenv("CQ_TEST_SECRET") })

	cfg, err := loadAppConfig(cfgPath, envPath)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, cfg.Auth.JWTSecret, "from-dotenv")
	testutil.AssertEqual(t, cfg.Store.Driver, storeDriverMemory)
	testutil.AssertEqual(t, cfg.Server.Addr, defaultHTTPAddr)
	testutil.AssertEqual(t, cfg.Submit.RateLimit.Window, time.Minute)
	testutil.AssertEqual(t, cfg.Problem.CacheTTL, 10*time.Minute)
	testutil.AssertTrue(t, len(cfg.CORS.AllowedMethods) > 0, "cors defaults should be applied")
}

func TestLoadAppConfigRejectsIncompleteFiles(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing secret", "judge:\n  baseURL: http://judge\nstore:\n  driver: memory\n"},
		{"missing judge", "auth:\n  jwtSecret: s\nstore:\n  driver: memory\n"},
		{"mongo without uri", "auth:\n  jwtSecret: s\njudge:\n  baseURL: http://judge\n"},
		{"unknown driver", "auth:\n  jwtSecret: s\njudge:\n  baseURL: http://judge\nstore:\n  driver: mysql\n"},
		{"kafka without brokers", "auth:\n  jwtSecret: s\njudge:\n  baseURL: http://judge\nstore:\n  driver: memory\nkafka:\n  enabled: true\n"},
		{"conflicting language ids", "auth:\n  jwtSecret: s\njudge:\n  baseURL: http://judge\n  languages:\n    cpp: 54\n    c++: 76\nstore:\n  driver: memory\n"},
		{"zero language id", "auth:\n  jwtSecret: s\njudge:\n  baseURL: http://judge\n  languages:\n    java: 0\nstore:\n  driver: memory\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "server.yaml", tc.body)
			_, err := loadAppConfig(path, "")
			testutil.AssertNotNil(t, err)
		})
	}
}

func TestLoadAppConfigCanonicalizesLanguageKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "server.yaml", `
store:
  driver: memory
auth:
  jwtSecret: s
judge:
  baseURL: "http://judge"
  languages:
    cpp: 54
    java: 62
`)
	cfg, err := loadAppConfig(path, "")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, cfg.Judge.Languages, map[string]int{"c++": 54, "java": 62})

	reg := language.NewRegistry(cfg.Judge.Languages)
	id, err := reg.ResolveAlias("cpp")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, id, 54)
}
