package service

import "errors"

// Client input errors. Handlers answer these with 400.
var (
	ErrNoTopics              = errors.New("provide at least one topic in topics[]")
	ErrTooManyQuestions      = errors.New("numQuestions exceeds the allowed maximum")
	ErrInvalidIndex          = errors.New("invalid index")
	ErrQuestionIndexRequired = errors.New("questionIndex required")
	ErrQuestionNotFound      = errors.New("question not found")
	ErrInvalidUserID         = errors.New("invalid userId")
	ErrNoChunks              = errors.New("no chunks available, run process-book first")
	ErrEmptyPrompt           = errors.New("prompt is required")
)

var inputErrors = []error{
	ErrNoTopics,
	ErrTooManyQuestions,
	ErrInvalidIndex,
	ErrQuestionIndexRequired,
	ErrQuestionNotFound,
	ErrInvalidUserID,
	ErrNoChunks,
	ErrEmptyPrompt,
}

// IsInputError reports whether err was caused by the request itself.
func IsInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
