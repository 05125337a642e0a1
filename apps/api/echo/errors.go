package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/fieldcrypt"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
	"github.com/shuleos/shule/core/user"
)

var (
	errUnauthenticated      = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "insufficient privilege")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// Response is the envelope every endpoint answers with; clients branch on
// Success and show Feedback.
type Response struct {
	Success  bool        `json:"success"`
	Feedback string      `json:"feedback,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}, feedback ...string) error {
	resp := Response{Success: true, Data: data}
	if len(feedback) > 0 {
		resp.Feedback = feedback[0]
	}
	return ctx.JSON(code, resp)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that maps the
// domain error taxonomy onto the response envelope. signalShutdown is called
// whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		resp := Response{Success: false}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				resp.Feedback = "not authenticated"
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				resp.Feedback = msg
			} else {
				resp.Feedback = http.StatusText(code)
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = translateFieldError(ctx, vErr)
			}
			code = http.StatusBadRequest
			resp.Feedback = "validation failed"
			resp.Data = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Feedback = origErr.Error()
			if resp.Feedback == "" {
				resp.Feedback = "validation failed"
			}
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				resp.Data = fldErrs
			}
		default:
			code, resp.Feedback = mapDomainError(errors.Cause(err))
			if code == http.StatusInternalServerError {
				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Email = claims.Email
				}
				logger.Error(resp.Feedback, errors.Wrap(err, resp.Feedback), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainError maps sentinel domain errors onto HTTP statuses. Anything not
// in the taxonomy is a server error; its details never reach the client.
func mapDomainError(cause error) (int, string) {
	switch cause {
	case user.ErrNotFound, role.ErrRoleNotFound, school.ErrNotFound:
		return http.StatusNotFound, cause.Error()
	case role.ErrPermanentRole:
		return http.StatusForbidden, cause.Error()
	case role.ErrSuperRoleHeld, role.ErrRoleInUse:
		return http.StatusConflict, cause.Error()
	}
	if errors.Is(cause, fieldcrypt.ErrEncrypt) {
		return http.StatusInternalServerError, "encryption failed"
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// the translator rides on the echo context so the error handler stays a
// single app-wide instance
const translatorContextKey = "translator"

func translatorMiddleware(translator ut.Translator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctx.Set(translatorContextKey, translator)
			return next(ctx)
		}
	}
}

func translateFieldError(ctx echo.Context, vErr validator.FieldError) string {
	if translator, ok := ctx.Get(translatorContextKey).(ut.Translator); ok {
		return vErr.Translate(translator)
	}
	return vErr.Error()
}
