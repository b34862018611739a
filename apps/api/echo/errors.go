package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpTooManyRequests  = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// message codes of the error envelope
const (
	codeValidation     = "validation_error"
	codeAuthentication = "authentication_failed"
	codeAuthorization  = "permission_denied"
	codeNotFound       = "not_found"
	codeRateLimit      = "rate_limited"
	codePersistence    = "service_unavailable"
	codeServerError    = "server_error"
)

type (
	fieldErrors struct {
		Field    string   `json:"field"`
		Messages []string `json:"messages"`
	}

	// errorResponse is the envelope of all non-2xx responses.
	errorResponse struct {
		Success     bool          `json:"success"`
		MessageCode string        `json:"message_code"`
		Message     interface{}   `json:"message"`
		Errors      []fieldErrors `json:"errors,omitempty"`
		ErrorCode   string        `json:"error_code,omitempty"`
	}
)

func messageCodeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeValidation
	case http.StatusUnauthorized:
		return codeAuthentication
	case http.StatusForbidden:
		return codeAuthorization
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusTooManyRequests:
		return codeRateLimit
	case http.StatusServiceUnavailable:
		return codePersistence
	}
	return codeServerError
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that maps our errors
// to the error envelope.
// signalShutdown is called in order to gracefully shutdown the Server whenever a
// core.shutdown error is caught.
func newAppHTTPErrorHandler(
	conf *core.Config,
	logger core.Logger,
	translator ut.Translator,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		res := errorResponse{Success: false}
		var code int

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				res.MessageCode = codeAuthentication
				res.Message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			res.MessageCode = messageCodeFor(code)
			res.Message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			res.MessageCode = codeValidation
			res.Message = "invalid input"
			res.Errors = make([]fieldErrors, 0, len(origErr))
			for _, vErr := range origErr {
				res.Errors = append(res.Errors, fieldErrors{
					Field:    vErr.Field(),
					Messages: []string{vErr.Translate(translator)},
				})
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			res.MessageCode = codeValidation
			if msg := origErr.Error(); msg != "" {
				res.Message = msg
			} else {
				res.Message = "invalid input"
			}
			for _, fErr := range origErr.Fields {
				res.Errors = append(res.Errors, fieldErrors{Field: fErr.Field, Messages: []string{fErr.Error}})
			}
		case *core.PersistenceError:
			code = http.StatusServiceUnavailable
			res.MessageCode = codePersistence
			res.Message = http.StatusText(http.StatusServiceUnavailable)

			logger.Error(origErr.Msg, err)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			res.MessageCode = codeServerError
			res.Message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if conf.Debug {
			res.ErrorCode = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
