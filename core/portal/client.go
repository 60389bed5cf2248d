package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/session"
)

// Default API error texts
const (
	DefaultCreateUserMessage = "Failed to create user"
	DefaultGetFormMessage    = "Failed to get form"
	DefaultErrorCode         = "UNKNOWN_ERROR"
)

// Client talks to the remote form API.
type Client interface {
	CreateUser(ctx context.Context, usr session.User) error
	GetForm(ctx context.Context, rollNumber string) (form.Schema, error)
}

// APIError is a non-2xx answer of the form API.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("form api: status %d", e.Status)
	}
	return e.Message
}

// IsUserExists reports whether err says the user is already registered.
func IsUserExists(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(errors.Cause(err).Error(), "already exists")
}
