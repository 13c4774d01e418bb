package realtime

import (
	"errors"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// errorBody maps an error onto the reply sent to the caller.
// Infrastructure failures are reported without detail.
func errorBody(err error) *ErrorBody {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return &ErrorBody{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, model.ErrForbidden):
		return &ErrorBody{Code: CodeForbidden, Message: err.Error()}
	case errors.Is(err, model.ErrInvalidOperation):
		return &ErrorBody{Code: CodeInvalidOperation, Message: err.Error()}
	case errors.Is(err, model.ErrAuth):
		return &ErrorBody{Code: CodeUnauthorized, Message: err.Error()}
	default:
		return &ErrorBody{Code: CodeInternalError, Message: "internal error"}
	}
}
