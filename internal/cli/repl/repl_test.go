package repl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codequest/internal/cli/command"
	httpclient "codequest/internal/cli/http"
	"codequest/internal/cli/state"
	"codequest/internal/testutil"
)

type recorded struct {
	path string
	auth string
	body map[string]interface{}
}

type callLog struct {
	mu    sync.Mutex
	calls []recorded
}

func (l *callLog) add(rec recorded) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, rec)
}

func (l *callLog) all() []recorded {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recorded(nil), l.calls...)
}

func newTestSession(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Session, *bytes.Buffer, *state.TokenState, string, *callLog) {
	t.Helper()
	calls := &callLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{path: r.URL.Path, auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		calls.add(rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	tokens := &state.TokenState{}
	var client *httpclient.Client
	client = httpclient.New(srv.URL, time.Second, func() string {
		return tokens.TokenFor(client.BaseURL(), time.Now())
	})
	out := &bytes.Buffer{}
	session := New(Options{
		Client:        client,
		Commands:      command.Registry(),
		TokenState:    tokens,
		StatePath:     statePath,
		Language:      "java",
		ResolveSource: func(p string) string { return filepath.Join(dir, p) },
		Output:        out,
	})
	return session, out, tokens, dir, calls
}

func noInput() *bufio.Reader { return bufio.NewReader(strings.NewReader("")) }

func TestExecLoginStoresScopedSession(t *testing.T) {
	session, _, tokens, _, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":10000,"message":"Success","data":{"token":"jwt-1","expires_at":"2099-01-01T00:00:00Z","user":{"_id":"u1","firstName":"Ada","emailId":"ada@example.com","role":"user"}}}`))
	})
	testutil.MustNoError(t, session.Exec(context.Background(), noInput(), "user login email=ada@example.com password='Str0ng!pass'"))

	testutil.AssertEqual(t, tokens.AccessToken, "jwt-1")
	testutil.AssertEqual(t, tokens.UserID, "u1")
	testutil.AssertEqual(t, tokens.BaseURL, session.client.BaseURL())

	saved, err := state.Load(session.statePath)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, saved.Who(), "ada@example.com (user)")
}

func TestExecSubmitUsesDefaultLanguageAndSourceDir(t *testing.T) {
	session, out, tokens, dir, calls := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"code":13107,"message":"Judge did not finish in time, please retry","trace_id":"tr-9"}`))
	})
	*tokens = state.TokenState{AccessToken: "jwt-1", BaseURL: session.client.BaseURL()}
	testutil.MustNoError(t, os.WriteFile(filepath.Join(dir, "Main.java"), []byte("class Main {}"), 0o600))

	testutil.MustNoError(t, session.Exec(context.Background(), noInput(), "submit submit problem=p1 file=Main.java"))

	got := calls.all()
	testutil.AssertEqual(t, len(got), 1)
	call := got[0]
	testutil.AssertEqual(t, call.path, "/submissions/p1/submit")
	testutil.AssertEqual(t, call.auth, "Bearer jwt-1")
	testutil.AssertEqual(t, call.body["language"], "java")
	testutil.AssertEqual(t, call.body["code"], "class Main {}")
	testutil.AssertTrue(t, strings.Contains(out.String(), "grading unavailable"), out.String())
	testutil.AssertTrue(t, strings.Contains(out.String(), "tr-9"), out.String())
}

func TestExecDoesNotSendTokenToOtherServer(t *testing.T) {
	session, _, tokens, _, calls := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":10000,"message":"Success","data":[]}`))
	})
	*tokens = state.TokenState{AccessToken: "jwt-1", BaseURL: "http://elsewhere:8080"}

	testutil.MustNoError(t, session.Exec(context.Background(), noInput(), "problem list"))
	testutil.AssertEqual(t, calls.all()[0].auth, "")
}

func TestExecLogoutClearsSession(t *testing.T) {
	session, _, tokens, _, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":10000,"message":"Logged out"}`))
	})
	*tokens = state.TokenState{AccessToken: "jwt-1", BaseURL: session.client.BaseURL()}
	testutil.MustNoError(t, state.Save(session.statePath, *tokens))

	testutil.MustNoError(t, session.Exec(context.Background(), noInput(), "user logout"))
	testutil.AssertEqual(t, tokens.AccessToken, "")
	saved, err := state.Load(session.statePath)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, saved.AccessToken, "")
}
