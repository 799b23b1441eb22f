package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codequest/internal/testutil"
)

func TestTokenForScopesToIssuingServer(t *testing.T) {
	now := time.Now()
	st := TokenState{AccessToken: "tok", BaseURL: "http://a:8080", ExpiresAt: now.Add(time.Hour)}
	testutil.AssertEqual(t, st.TokenFor("http://a:8080", now), "tok")
	testutil.AssertEqual(t, st.TokenFor("http://b:8080", now), "")
	testutil.AssertEqual(t, st.TokenFor("http://a:8080", now.Add(2*time.Hour)), "")

	legacy := TokenState{AccessToken: "tok"}
	testutil.AssertEqual(t, legacy.TokenFor("http://any", now), "tok")
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st := TokenState{AccessToken: "tok", BaseURL: "http://a", Email: "ada@example.com", Role: "admin"}
	testutil.MustNoError(t, Save(path, st))

	info, err := os.Stat(path)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, info.Mode().Perm(), os.FileMode(0o600))

	loaded, err := Load(path)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, loaded.Who(), "ada@example.com (admin)")
	testutil.AssertEqual(t, loaded.AccessToken, "tok")

	testutil.MustNoError(t, Clear(path))
	loaded, err = Load(path)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, loaded.AccessToken, "")
	testutil.MustNoError(t, Clear(path))
}
