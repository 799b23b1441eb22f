package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"codequest/internal/common/docstore"
	"codequest/internal/judge/grader"
	"codequest/internal/judge/judgeclient"
	"codequest/internal/judge/language"
	"codequest/internal/judge/verdict"
	"codequest/internal/problem/model"
	"codequest/internal/problem/repository"
	"codequest/internal/testutil"
	appErr "codequest/pkg/errors"
)

// fakeGrader runs "programs" that are Go funcs keyed by source text.
type fakeGrader struct {
	mu       sync.Mutex
	programs map[string]func(input string) string
	err      error
	calls    []int
}

func (g *fakeGrader) Grade(ctx context.Context, source string, languageID int, tests []grader.TestCase) (grader.Report, error) {
	g.mu.Lock()
	g.calls = append(g.calls, languageID)
	g.mu.Unlock()
	if g.err != nil {
		return grader.Report{}, g.err
	}
	program := g.programs[source]
	results := make([]judgeclient.Result, len(tests))
	for i, tc := range tests {
		out := ""
		if program != nil {
			out = program(tc.Input)
		}
		res := judgeclient.Result{Stdout: out, Time: 0.25, Memory: 1024}
		if program == nil {
			res.Outcome = judgeclient.OutcomeRuntimeError
			res.Diagnostic = "compilation error"
		} else if out == tc.Output {
			res.Outcome = judgeclient.OutcomeAccepted
		} else {
			res.Outcome = judgeclient.OutcomeWrongOutput
		}
		results[i] = res
	}
	return grader.Report{Verdict: verdict.Aggregate(results), Results: results}, nil
}

func (g *fakeGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakePurger struct {
	purged []string
	err    error
}

func (p *fakePurger) PurgeProblem(ctx context.Context, problemID string) error {
	if p.err != nil {
		return p.err
	}
	p.purged = append(p.purged, problemID)
	return nil
}

const (
	sumSource   = "sum"
	threeSource = "three"
)

func sumProgram(input string) string {
	switch input {
	case "1 2":
		return "3"
	case "2 5":
		return "7"
	}
	return ""
}

func newTestService(t *testing.T) (*ProblemService, *fakeGrader, *fakePurger, repository.ProblemRepository) {
	t.Helper()
	repo := repository.NewProblemRepository(docstore.NewMemoryStore(), nil)
	g := &fakeGrader{programs: map[string]func(string) string{
		sumSource:   sumProgram,
		threeSource: func(string) string { return "3" },
	}}
	purger := &fakePurger{}
	svc, err := NewProblemService(Config{
		Repo:              repo,
		Registry:          language.NewRegistry(nil),
		Grader:            g,
		Submissions:       purger,
		ValidationTimeout: time.Second,
	})
	testutil.MustNoError(t, err)
	return svc, g, purger, repo
}

func sumDraft(refs ...model.ReferenceSolution) Draft {
	if len(refs) == 0 {
		refs = []model.ReferenceSolution{{Language: "cpp", CompleteCode: sumSource}}
	}
	return Draft{
		Title:       "Sum of two",
		Description: "Print a+b.",
		Difficulty:  model.DifficultyEasy,
		Tag:         model.TagArray,
		VisibleTestCases: []model.VisibleTestCase{
			{Input: "1 2", Output: "3", Explanation: "1+2"},
			{Input: "2 5", Output: "7"},
		},
		HiddenTestCases:   []model.HiddenTestCase{{Input: "10 20", Output: "30"}},
		StartCode:         []model.StartCode{{Language: "cpp", InitialCode: "int main(){}"}},
		ReferenceSolution: refs,
	}
}

func TestCreateStoresValidatedProblem(t *testing.T) {
	svc, g, _, repo := newTestService(t)
	ctx := context.Background()

	problem, err := svc.Create(ctx, "admin-1", sumDraft(
		model.ReferenceSolution{Language: "cpp", CompleteCode: sumSource},
		model.ReferenceSolution{Language: "javascript", CompleteCode: sumSource},
	))
	testutil.MustNoError(t, err)
	testutil.AssertTrue(t, problem.ID != "", "expected generated id")
	testutil.AssertEqual(t, problem.CreatorID, "admin-1")
	testutil.AssertEqual(t, g.callCount(), 2)

	stored, err := repo.GetByID(ctx, problem.ID)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, stored.Title, "Sum of two")
	testutil.AssertEqual(t, len(stored.HiddenTestCases), 1)
}

func TestValidateResolvesAliasToEngineID(t *testing.T) {
	svc, g, _, _ := newTestService(t)
	err := svc.Validate(context.Background(), sumDraft())
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, g.calls, []int{language.DefaultEngineIDs[language.CPP]})
}

func TestCreateRejectsFailingReferenceSolution(t *testing.T) {
	svc, _, _, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin-1", sumDraft(
		model.ReferenceSolution{Language: "c++", CompleteCode: sumSource},
		model.ReferenceSolution{Language: "java", CompleteCode: threeSource},
	))
	testutil.AssertTrue(t, appErr.Is(err, appErr.ReferenceSolutionFailed), "expected reference failure")
	details := appErr.GetError(err).Details
	testutil.AssertEqual(t, details["language"], "java")
	testutil.AssertEqual(t, details["passed"], 1)
	testutil.AssertEqual(t, details["total"], 2)
	testutil.AssertEqual(t, details["status"], string(verdict.StatusWrongAnswer))

	list, err := repo.List(ctx)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, len(list), 0)
}

func TestValidateReportsFirstFailureInDeclarationOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.Validate(context.Background(), sumDraft(
		model.ReferenceSolution{Language: "java", CompleteCode: threeSource},
		model.ReferenceSolution{Language: "javascript", CompleteCode: "does not compile"},
	))
	testutil.AssertTrue(t, appErr.Is(err, appErr.ReferenceSolutionFailed), "expected reference failure")
	testutil.AssertEqual(t, appErr.GetError(err).Details["language"], "java")
}

func TestValidateRejectsUnsupportedLanguageBeforeJudging(t *testing.T) {
	svc, g, _, _ := newTestService(t)
	err := svc.Validate(context.Background(), sumDraft(
		model.ReferenceSolution{Language: "python", CompleteCode: sumSource},
	))
	testutil.AssertTrue(t, appErr.Is(err, appErr.LanguageNotSupported), "expected unsupported language")
	testutil.AssertEqual(t, g.callCount(), 0)
}

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		code   appErr.ErrorCode
	}{
		{"empty title", func(d *Draft) { d.Title = " " }, appErr.ValidationFailed},
		{"empty description", func(d *Draft) { d.Description = "" }, appErr.ValidationFailed},
		{"bad difficulty", func(d *Draft) { d.Difficulty = "trivial" }, appErr.InvalidDifficulty},
		{"bad tag", func(d *Draft) { d.Tag = "tree" }, appErr.InvalidTag},
		{"no visible", func(d *Draft) { d.VisibleTestCases = nil }, appErr.ValidationFailed},
		{"no hidden", func(d *Draft) { d.HiddenTestCases = nil }, appErr.ValidationFailed},
		{"no reference", func(d *Draft) { d.ReferenceSolution = nil }, appErr.ValidationFailed},
		{"empty reference code", func(d *Draft) { d.ReferenceSolution[0].CompleteCode = "" }, appErr.ValidationFailed},
		{"bad start language", func(d *Draft) { d.StartCode[0].Language = "go" }, appErr.LanguageNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newTestService(t)
			draft := sumDraft()
			tt.mutate(&draft)
			err := svc.Validate(context.Background(), draft)
			testutil.AssertEqual(t, appErr.GetCode(err), tt.code)
		})
	}
}

func TestValidateJudgeTimeoutIsNotAReferenceFailure(t *testing.T) {
	svc, g, _, _ := newTestService(t)
	g.err = appErr.New(appErr.JudgeTimeout)
	err := svc.Validate(context.Background(), sumDraft())
	testutil.AssertTrue(t, appErr.Is(err, appErr.JudgeTimeout), "expected judge timeout")
	testutil.AssertTrue(t, appErr.Retryable(err), "judge timeout should be retryable")
}

func TestUpdateKeepsCreatorAndRevalidates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "admin-1", sumDraft())
	testutil.MustNoError(t, err)

	draft := sumDraft()
	draft.Title = "Sum of two numbers"
	updated, err := svc.Update(ctx, created.ID, draft)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, updated.CreatorID, "admin-1")
	testutil.AssertEqual(t, updated.Title, "Sum of two numbers")

	bad := sumDraft(model.ReferenceSolution{Language: "cpp", CompleteCode: threeSource})
	_, err = svc.Update(ctx, created.ID, bad)
	testutil.AssertTrue(t, appErr.Is(err, appErr.ReferenceSolutionFailed), "expected reference failure")

	got, err := svc.GetAdmin(ctx, created.ID)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got.ReferenceSolution[0].CompleteCode, sumSource)

	_, err = svc.Update(ctx, "missing", draft)
	testutil.AssertTrue(t, appErr.Is(err, appErr.ProblemNotFound), "expected not found")
}

func TestDeletePurgesSubmissions(t *testing.T) {
	svc, _, purger, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "admin-1", sumDraft())
	testutil.MustNoError(t, err)

	testutil.MustNoError(t, svc.Delete(ctx, created.ID))
	testutil.AssertEqual(t, purger.purged, []string{created.ID})

	_, err = svc.Get(ctx, created.ID)
	testutil.AssertTrue(t, appErr.Is(err, appErr.ProblemNotFound), "expected not found")

	err = svc.Delete(ctx, created.ID)
	testutil.AssertTrue(t, appErr.Is(err, appErr.ProblemNotFound), "expected not found")
	testutil.AssertEqual(t, len(purger.purged), 1)
}

func TestGetHidesHiddenTestsAndListByIDsSkipsUnknown(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "admin-1", sumDraft())
	testutil.MustNoError(t, err)

	public, err := svc.Get(ctx, created.ID)
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, len(public.VisibleTestCases), 2)

	summaries, err := svc.ListByIDs(ctx, []string{created.ID, "gone"})
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, len(summaries), 1)
	testutil.AssertEqual(t, summaries[0].Title, "Sum of two")
}
