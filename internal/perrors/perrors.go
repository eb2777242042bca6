package perrors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is a machine-distinguishable failure category. Every failure surfaced
// to a caller maps to exactly one Kind.
type Kind struct {
	Code       string
	HTTPStatus int
	GRPCCode   codes.Code
}

var (
	KindValidation         = Kind{"validation_error", http.StatusBadRequest, codes.InvalidArgument}
	KindDuplicateEmail     = Kind{"duplicate_email", http.StatusConflict, codes.AlreadyExists}
	KindInvalidCredentials = Kind{"invalid_credentials", http.StatusUnauthorized, codes.Unauthenticated}
	KindMissingToken       = Kind{"missing_token", http.StatusUnauthorized, codes.Unauthenticated}
	KindInvalidToken       = Kind{"invalid_token", http.StatusForbidden, codes.PermissionDenied}
	KindForbidden          = Kind{"forbidden", http.StatusForbidden, codes.PermissionDenied}
	KindStorage            = Kind{"storage_error", http.StatusInternalServerError, codes.Internal}
	KindInternal           = Kind{"internal_error", http.StatusInternalServerError, codes.Internal}
)

// Sentinels for errors.Is. Matching is by Kind, so any *Err of the same kind
// satisfies errors.Is against the sentinel.
var (
	ErrValidation         = &Err{Kind: KindValidation, Message: "invalid request"}
	ErrDuplicateEmail     = &Err{Kind: KindDuplicateEmail, Message: "email already exists"}
	ErrInvalidCredentials = &Err{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrMissingToken       = &Err{Kind: KindMissingToken, Message: "token required"}
	ErrInvalidToken       = &Err{Kind: KindInvalidToken, Message: "invalid token"}
	ErrForbidden          = &Err{Kind: KindForbidden, Message: "invalid token"}
	ErrStorage            = &Err{Kind: KindStorage, Message: "storage failure"}
	ErrInternal           = &Err{Kind: KindInternal, Message: "server error"}
)

// Err is the error type returned by the service layer.
// Message is safe to show to callers, the wrapped cause is not.
type Err struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Err) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Err) Unwrap() error {
	return e.cause
}

func (e *Err) Is(target error) bool {
	t, ok := target.(*Err)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus returns the response status for this error.
func (e *Err) HTTPStatus() int {
	return e.Kind.HTTPStatus
}

// GRPCStatus lets status.FromError and status.Code recognise Err directly.
func (e *Err) GRPCStatus() *status.Status {
	return status.New(e.Kind.GRPCCode, e.Message)
}

// New builds an Err of the given kind wrapping cause (which may be nil).
func New(kind Kind, msg string, cause error) error {
	return &Err{Kind: kind, Message: msg, cause: cause}
}

func Validation(msg string) error {
	return New(KindValidation, msg, nil)
}

func Storage(cause error) error {
	return New(KindStorage, ErrStorage.Message, cause)
}

func Internal(cause error) error {
	return New(KindInternal, ErrInternal.Message, cause)
}

// As extracts an *Err from err. Errors that are not *Err are reported as
// internal errors so the original detail never reaches the caller.
func As(err error) *Err {
	if err == nil {
		return nil
	}
	var e *Err
	if errors.As(err, &e) {
		return e
	}
	return &Err{Kind: KindInternal, Message: ErrInternal.Message, cause: err}
}

// Log writes err to logger when it is a server-side failure. Caller errors
// (validation, auth) are expected and logged at debug level only.
func Log(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := As(err)
	if e.Kind == KindStorage || e.Kind == KindInternal {
		logger.ErrorContext(ctx, msg, slog.String("code", e.Kind.Code), slog.Any("error", err))
		return
	}
	logger.DebugContext(ctx, msg, slog.String("code", e.Kind.Code), slog.String("error", e.Message))
}
