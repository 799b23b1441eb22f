package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"codequest/internal/testutil"
)

func TestBuildSubmitWithSourceFile(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "main.cpp")
	testutil.MustNoError(t, os.WriteFile(sourcePath, []byte("int main() {}"), 0o600))

	cmd := Registry()["submit submit"]
	params := Params{}
	params.Set("problem", "p1")
	params.Set("lang", "c++")
	params.Set("file", sourcePath)
	params.Set("code", "_file_")

	req, err := BuildRequest(cmd, params)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, req.Path, "/submissions/p1/submit")

	var payload map[string]string
	testutil.MustUnmarshalJSON(t, req.Body, &payload)
	testutil.AssertEqual(t, payload["code"], "int main() {}")
	testutil.AssertEqual(t, payload["language"], "c++")
}

func TestBuildProblemUpdateFromFile(t *testing.T) {
	dir := t.TempDir()
	problemPath := filepath.Join(dir, "problem.json")
	testutil.MustNoError(t, os.WriteFile(problemPath, []byte(`{"title":"Two Sum","difficulty":"easy"}`), 0o600))

	cmd := Registry()["problem update"]
	params := Params{}
	params.Set("problem_id", "p9")
	params.Set("file", problemPath)

	req, err := BuildRequest(cmd, params)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, req.Method, "PUT")
	testutil.AssertEqual(t, req.Path, "/problems/p9")
	testutil.AssertTrue(t, json.Valid(req.Body), "body should be valid json")

	var payload map[string]string
	testutil.MustUnmarshalJSON(t, req.Body, &payload)
	testutil.AssertEqual(t, payload["title"], "Two Sum")
}

func TestBuildSourcePath(t *testing.T) {
	cmd := Registry()["problem source"]
	params := Params{}
	params.Set("id", "p1")
	params.Set("submission", "s1")

	req, err := BuildRequest(cmd, params)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, req.Path, "/problems/p1/submissions/s1")
	testutil.AssertNil(t, req.Body)
}

func TestBuildRegisterPayload(t *testing.T) {
	cmd := Registry()["user register"]
	params := Params{}
	params.Set("name", "Ada")
	params.Set("email", "ada@example.com")
	params.Set("password", "Str0ng!pass")
	params.Set("age", "30")

	req, err := BuildRequest(cmd, params)
	testutil.MustNoError(t, err)
	var payload map[string]interface{}
	testutil.MustUnmarshalJSON(t, req.Body, &payload)
	testutil.AssertEqual(t, payload["firstName"], "Ada")
	testutil.AssertEqual(t, payload["emailId"], "ada@example.com")
	testutil.AssertEqual(t, payload["age"], float64(30))

	params.Set("age", "thirty")
	_, err = BuildRequest(cmd, params)
	testutil.AssertNotNil(t, err)
}

func TestBuildMissingPathParam(t *testing.T) {
	_, err := BuildRequest(Registry()["problem get"], Params{})
	testutil.AssertNotNil(t, err)
}
