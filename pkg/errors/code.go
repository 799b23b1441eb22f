package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: User & Auth module errors
// 12000-12999: Problem module errors
// 13000-13999: Submission & Judge module errors
// 16000-16999: Permission errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Store errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== User Module Errors (11000-11999) ==========

	// Authentication (11000-11099)
	InvalidCredentials    ErrorCode = 11000
	UserNotFound          ErrorCode = 11001
	TokenExpired          ErrorCode = 11003
	TokenInvalid          ErrorCode = 11004
	TokenGenerationFailed ErrorCode = 11005
	TokenRevoked          ErrorCode = 11006

	// Registration (11100-11199)
	EmailAlreadyExists ErrorCode = 11101
	InvalidUsername    ErrorCode = 11102
	InvalidEmail       ErrorCode = 11103
	InvalidPassword    ErrorCode = 11104
	PasswordTooWeak    ErrorCode = 11105

	// User operations (11200-11299)
	UserUpdateFailed ErrorCode = 11200
	UserDeleteFailed ErrorCode = 11201

	// ========== Problem Module Errors (12000-12999) ==========

	// Problem basic (12000-12099)
	ProblemNotFound     ErrorCode = 12000
	ProblemCreateFailed ErrorCode = 12002
	ProblemUpdateFailed ErrorCode = 12003
	ProblemDeleteFailed ErrorCode = 12004

	// Test cases & reference solutions (12100-12199)
	TestCaseInvalid         ErrorCode = 12102
	ReferenceSolutionFailed ErrorCode = 12104

	// Tags & difficulty (12200-12299)
	InvalidTag        ErrorCode = 12201
	InvalidDifficulty ErrorCode = 12203

	// ========== Submission & Judge Module Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	LanguageNotSupported   ErrorCode = 13003
	SubmitTooFrequently    ErrorCode = 13004
	SubmissionUpdateFailed ErrorCode = 13006

	// Judge (13100-13199)
	JudgeSystemError ErrorCode = 13101
	JudgeTimeout     ErrorCode = 13107

	// ========== Permission Errors (16000-16999) ==========

	PermissionDenied       ErrorCode = 16000
	InsufficientPermission ErrorCode = 16001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Store
	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// User - Authentication
	InvalidCredentials:    "Invalid email or password",
	UserNotFound:          "User not found",
	TokenExpired:          "Token has expired",
	TokenInvalid:          "Invalid token",
	TokenGenerationFailed: "Failed to generate token",
	TokenRevoked:          "Token has been revoked",

	// User - Registration
	EmailAlreadyExists: "Email already exists",
	InvalidUsername:    "Invalid first name",
	InvalidEmail:       "Invalid email format",
	InvalidPassword:    "Invalid password format",
	PasswordTooWeak:    "Password is too weak",

	// User - Operations
	UserUpdateFailed: "Failed to update user",
	UserDeleteFailed: "Failed to delete user",

	// Problem
	ProblemNotFound:     "Problem not found",
	ProblemCreateFailed: "Failed to create problem",
	ProblemUpdateFailed: "Failed to update problem",
	ProblemDeleteFailed: "Failed to delete problem",

	// Test cases & reference solutions
	TestCaseInvalid:         "Invalid test case",
	ReferenceSolutionFailed: "Reference solution does not pass the visible test cases",

	// Tags & difficulty
	InvalidTag:        "Invalid tag",
	InvalidDifficulty: "Invalid difficulty",

	// Submission
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	CodeTooLarge:           "Code is too large",
	LanguageNotSupported:   "Programming language not supported",
	SubmitTooFrequently:    "Submitting too frequently, please wait",
	SubmissionUpdateFailed: "Failed to update submission",

	// Judge
	JudgeSystemError: "Judge system error",
	JudgeTimeout:     "Judge did not finish in time, please retry",

	// Permission
	PermissionDenied:       "Permission denied",
	InsufficientPermission: "Insufficient permission",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == InvalidCredentials, c == TokenExpired, c == TokenInvalid, c == TokenRevoked:
		return 401
	case c == Unauthorized:
		return 401
	case c == Forbidden, c >= 16000 && c < 16100: // Permission errors
		return 403
	case c == NotFound, c == UserNotFound, c == ProblemNotFound, c == SubmissionNotFound:
		return 404
	case c == EmailAlreadyExists, c == RecordAlreadyExists:
		return 409
	case c == ReferenceSolutionFailed:
		return 422
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == JudgeSystemError:
		return 502
	case c == ServiceUnavailable:
		return 503
	case c == JudgeTimeout, c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c >= 11100 && c < 11200: // Registration input errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge,
		c == TestCaseInvalid, c == InvalidTag, c == InvalidDifficulty:
		return 400
	default:
		return 500
	}
}
