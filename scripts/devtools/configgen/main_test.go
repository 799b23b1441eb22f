package main

import (
	"os"
	"path/filepath"
	"testing"

	"codequest/internal/testutil"

	"gopkg.in/yaml.v3"
)

func TestRunRendersServerAndCLI(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		testutil.MustNoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("server.base.yaml", "server:\n  addr: \":9999\"\nauth:\n  tokenTTL: 1h\nsubmit:\n  rateLimit:\n    userMax: 10\n")
	write("cli.base.yaml", "timeout: 10s\n")
	write("profile.yaml", `
outputDir: out
shared:
  serverAddr: "0.0.0.0:8080"
  jwtSecret: dev-secret
  storeDriver: memory
targets:
  server:
    base: server.base.yaml
    output: server.yaml
    overrides:
      submit:
        rateLimit:
          window: 30s
  cli:
    base: cli.base.yaml
    output: cli.yaml
`)

	testutil.MustNoError(t, run(filepath.Join(dir, "profile.yaml"), ""))

	var server map[string]map[string]interface{}
	data, err := os.ReadFile(filepath.Join(dir, "out", "server.yaml"))
	testutil.MustNoError(t, err)
	testutil.MustNoError(t, yaml.Unmarshal(data, &server))
	testutil.AssertEqual(t, server["server"]["addr"], "0.0.0.0:8080")
	testutil.AssertEqual(t, server["auth"]["jwtSecret"], "dev-secret")
	testutil.AssertEqual(t, server["auth"]["tokenTTL"], "1h")
	testutil.AssertEqual(t, server["store"]["driver"], "memory")
	rate := server["submit"]["rateLimit"].(map[string]interface{})
	testutil.AssertEqual(t, rate["userMax"], 10)
	testutil.AssertEqual(t, rate["window"], "30s")

	var cli map[string]interface{}
	data, err = os.ReadFile(filepath.Join(dir, "out", "cli.yaml"))
	testutil.MustNoError(t, err)
	testutil.MustNoError(t, yaml.Unmarshal(data, &cli))
	testutil.AssertEqual(t, cli["baseURL"], "http://127.0.0.1:8080")
	testutil.AssertEqual(t, cli["timeout"], "10s")
}

func TestClientURL(t *testing.T) {
	cases := map[string]string{
		":8080":        "http://127.0.0.1:8080",
		"0.0.0.0:8080": "http://127.0.0.1:8080",
		"10.0.0.5:80":  "http://10.0.0.5:80",
		"[::]:8080":    "http://127.0.0.1:8080",
	}
	for addr, want := range cases {
		got, err := clientURL(addr)
		testutil.MustNoError(t, err)
		testutil.AssertEqual(t, got, want)
	}
	_, err := clientURL("no-port")
	testutil.AssertNotNil(t, err)
}
