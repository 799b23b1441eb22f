package errors_test

import (
	stderrors "errors"
	"fmt"

	pkgerrors "codequest/pkg/errors"
)

func ExampleNewf() {
	err := pkgerrors.Newf(pkgerrors.LanguageNotSupported, "language %q is not supported", "ruby").
		WithDetail("language", "ruby")

	fmt.Println(err.Code.HTTPStatus(), err.Error(), err.Details["language"])
	// Output: 400 language "ruby" is not supported ruby
}

func ExampleWrap() {
	cause := stderrors.New("dial tcp 10.0.0.7:2358: connection refused")
	err := pkgerrors.Wrap(fmt.Errorf("submit batch failed: %w", cause), pkgerrors.JudgeSystemError)

	fmt.Println(pkgerrors.GetCode(err), stderrors.Is(err, cause), pkgerrors.Retryable(err))
	// Output: 13101 true true
}

func ExampleValidationError() {
	err := pkgerrors.ValidationError("hiddenTestCases", "at least one hidden test case is required")

	fmt.Println(err.Code.HTTPStatus(), err.Error())
	// Output: 400 hiddenTestCases: at least one hidden test case is required
}
