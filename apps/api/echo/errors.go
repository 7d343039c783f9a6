package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/academic"
	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// isNotFound reports whether err is one of the domain not-found sentinels.
// Handlers usually translate these themselves; this is the fallback for the
// ones that bubble up untranslated.
func isNotFound(err error) bool {
	switch errors.Cause(err) {
	case user.ErrNotFound, syllabus.ErrNotFound, academic.ErrNotFound, notification.ErrNotFound:
		return true
	}
	return false
}

// fieldErrMap flattens field-addressable failures into a field -> message map
// for the response body.
func fieldErrMap(flds []core.FieldError) map[string]string {
	m := make(map[string]string, len(flds))
	for _, fErr := range flds {
		m[fErr.Field] = fErr.Error
	}
	return m
}

// translateErr maps an application error to an HTTP status code and a
// response payload.
func translateErr(err error) (int, interface{}, bool) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message, true
		}
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, origErr.Message, true
	case validator.ValidationErrors:
		flds := core.TranslateFieldErrors(origErr)
		return http.StatusBadRequest, fieldErrMap(flds), true
	case *core.ValidationError:
		if origErr.Fields != nil {
			return http.StatusBadRequest, fieldErrMap(origErr.Fields), true
		}
		return http.StatusBadRequest, origErr.Error(), true
	case *core.PermissionError:
		return http.StatusForbidden, origErr.Error(), true
	}
	if isNotFound(err) {
		return errHttpNotFound.Code, errHttpNotFound.Message, true
	}
	return 0, nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, ok := translateErr(err)
		if !ok {
			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(code)
			message = msg

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

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
