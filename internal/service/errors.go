package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/money"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/storage/blob"
)

var (
	errNotMember      = errors.New("you must be a member of this group")
	errNotOwner       = errors.New("only the group owner can do that")
	errNotCreator     = errors.New("only the receipt creator or group owner can do that")
	errAuthRequired   = errors.New("authentication required")
	errNotReady       = errors.New("receipt is not fully assigned")
	errNotParticipant = errors.New("member is not a participant on this receipt")
)

// codeOf picks the Connect code for an error coming out of the lower layers.
func codeOf(err error) connect.Code {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return connectErr.Code()
	case calculator.IsValidation(err),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, blob.ErrUnsupportedType),
		errors.Is(err, blob.ErrTooLarge),
		errors.Is(err, auth.ErrWeakPassword):
		return connect.CodeInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, auth.ErrEmailExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, errNotMember), errors.Is(err, errNotOwner), errors.Is(err, errNotCreator):
		return connect.CodePermissionDenied
	case errors.Is(err, errNotReady):
		return connect.CodeFailedPrecondition
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	return connect.CodeInternal
}

// toConnectError wraps err with its Connect code and logs it. Internal errors
// log at error level, everything else at debug: the RPC log line already
// records client errors.
func toConnectError(ctx context.Context, logger *slog.Logger, op string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	code := codeOf(err)
	if code == connect.CodeInternal {
		logger.ErrorContext(ctx, op+" failed", "error", err)
	} else {
		logger.DebugContext(ctx, op+" rejected", "code", code, "error", err)
	}
	return connect.NewError(code, err)
}

// requireUser returns the caller's user ID or an Unauthenticated error.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	return userID, nil
}
