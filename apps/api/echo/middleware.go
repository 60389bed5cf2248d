package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
)

var corsConfig = middleware.CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
}

// requireQueryParams rejects requests missing any of the given (non-blank) query params.
func requireQueryParams(names ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var flds []core.FieldError
			for _, name := range names {
				if core.CleanString(ctx.QueryParam(name)) == "" {
					flds = append(flds, core.FieldError{Field: name, Error: "This field is required"})
				}
			}
			if len(flds) > 0 {
				return core.NewValidationError(errors.Errorf("%s is required", flds[0].Field), flds...)
			}
			return next(ctx)
		}
	}
}
