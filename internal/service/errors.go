package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledgererr"
	"github.com/mmynk/splitledger/internal/middleware"
)

var errNoRequester = errors.New("no authenticated user")

// toConnectError maps a ledger error kind onto a Connect status code.
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case ledgererr.IsNotFound(err):
		code = connect.CodeNotFound
	case ledgererr.IsMembership(err), ledgererr.IsShareMismatch(err):
		code = connect.CodeInvalidArgument
	case ledgererr.IsAccessDenied(err):
		code = connect.CodePermissionDenied
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}

// requesterID returns the authenticated caller, or CodeUnauthenticated when
// the handler was mounted without RequireAuth.
func requesterID(ctx context.Context) (string, error) {
	id := middleware.GetUserID(ctx)
	if id == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errNoRequester)
	}
	return id, nil
}
