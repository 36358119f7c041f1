package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Authentication errors (judge server token, admin token)
// 12000-12999: Problem errors
// 13000-13999: Submission & Judge errors
// 14000-14999: Contest & Rank errors

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

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	LockFailed ErrorCode = 10203

	// Message queue errors (10250-10299)
	QueueError        ErrorCode = 10250
	QueuePublishError ErrorCode = 10251

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Authentication Errors (11000-11999) ==========

	TokenExpired          ErrorCode = 11003
	TokenInvalid          ErrorCode = 11004
	JudgeServerTokenError ErrorCode = 11010
	InsufficientRole      ErrorCode = 11020

	// ========== Problem Errors (12000-12999) ==========

	ProblemNotFound   ErrorCode = 12000
	ProblemNotSPJ     ErrorCode = 12010
	SPJCompileFailed  ErrorCode = 12011
	TestCaseNotFound  ErrorCode = 12100
	TestCaseInvalid   ErrorCode = 12102
	SamplesNotPresent ErrorCode = 12103

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound   ErrorCode = 13000
	LanguageNotSupported ErrorCode = 13003
	SubmissionInFlight   ErrorCode = 13006

	// Judge (13100-13199)
	NoJudgeServerAvailable ErrorCode = 13100
	JudgeSystemError       ErrorCode = 13101
	CompilationError       ErrorCode = 13102
	JudgeServerNotFound    ErrorCode = 13110
	JudgeResponseInvalid   ErrorCode = 13111

	// ========== Contest Errors (14000-14999) ==========

	ContestNotFound     ErrorCode = 14000
	ContestNotStarted   ErrorCode = 14001
	ContestEnded        ErrorCode = 14002
	RankingNotAvailable ErrorCode = 14300
)

// errorMessages maps error codes to default messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized",
	Forbidden:           "Forbidden",
	TooManyRequests:     "Too many requests",
	ServiceUnavailable:  "Service unavailable",
	Timeout:             "Request timeout",

	DatabaseError:       "Database error",
	RecordNotFound:      "Record not found",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Transaction failed",

	CacheError: "Cache error",
	LockFailed: "Failed to acquire lock",

	QueueError:        "Message queue error",
	QueuePublishError: "Failed to publish message",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	TokenExpired:          "Token has expired",
	TokenInvalid:          "Invalid token",
	JudgeServerTokenError: "Invalid judge server token",
	InsufficientRole:      "Insufficient role",

	ProblemNotFound:   "Problem not found",
	ProblemNotSPJ:     "Problem does not use a special judge",
	SPJCompileFailed:  "Special judge compilation failed",
	TestCaseNotFound:  "Test case not found",
	TestCaseInvalid:   "Invalid test case",
	SamplesNotPresent: "Problem has no samples",

	SubmissionNotFound:   "Submission not found",
	LanguageNotSupported: "Language not supported",
	SubmissionInFlight:   "Submission is already being judged",

	NoJudgeServerAvailable: "No judge server available",
	JudgeSystemError:       "Judge system error",
	CompilationError:       "Compilation error",
	JudgeServerNotFound:    "Judge server not found",
	JudgeResponseInvalid:   "Invalid judge server response",

	ContestNotFound:     "Contest not found",
	ContestNotStarted:   "Contest has not started yet",
	ContestEnded:        "Contest has ended",
	RankingNotAvailable: "Ranking is not available",
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
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid, c == JudgeServerTokenError:
		return 401
	case c == Forbidden, c == InsufficientRole:
		return 403
	case c == NotFound, c == RecordNotFound, c == ProblemNotFound, c == SubmissionNotFound,
		c == ContestNotFound, c == JudgeServerNotFound, c == TestCaseNotFound:
		return 404
	case c == SubmissionInFlight, c == RecordAlreadyExists:
		return 409
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable, c == NoJudgeServerAvailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == ProblemNotSPJ, c == SamplesNotPresent, c == LanguageNotSupported:
		return 400
	default:
		return 500
	}
}
