package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/student"
)

// Error codes
const (
	codeValidation   = "VALIDATION_ERROR"
	codeUserExists   = "USER_EXISTS"
	codeUserNotFound = "USER_NOT_FOUND"
	codeUnknown      = "UNKNOWN_ERROR"
)

// apiError is the body of every error response.
type apiError struct {
	status  int
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func newAPIError(status int, code, format string, args ...interface{}) *apiError {
	return &apiError{status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *apiError) Error() string {
	return e.Message
}

// httpCode turns an HTTP status into an error code, e.g. 405 -> METHOD_NOT_ALLOWED.
func httpCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return codeUnknown
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var resp *apiError

		switch origErr := errors.Cause(err).(type) {
		case *apiError:
			resp = origErr
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			resp = &apiError{status: origErr.Code, Code: httpCode(origErr.Code), Message: fmt.Sprint(origErr.Message)}
		case validator.ValidationErrors:
			vErr := core.TranslateErrors(origErr).(*core.ValidationError)
			resp = &apiError{status: http.StatusBadRequest, Code: codeValidation, Message: "Invalid request", Fields: vErr.FieldMap()}
		case *core.ValidationError:
			resp = &apiError{status: http.StatusBadRequest, Code: codeValidation, Message: origErr.Error()}
			if len(origErr.Fields) > 0 {
				resp.Fields = origErr.FieldMap()
				if origErr.Err == nil {
					resp.Message = "Invalid request"
				}
			}
		default: // any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			resp = &apiError{status: http.StatusInternalServerError, Code: codeUnknown, Message: msg}
			logArgs := []interface{}{errors.Wrap(err, msg), map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Request().URL.Path,
			}}
			if std, ok := ctx.Get(studentCtxKey).(student.Student); ok {
				logArgs = append(logArgs, std)
			}
			logger.Error(msg, logArgs...)
			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(resp.status)
			} else {
				err = ctx.JSON(resp.status, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
