package service

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/auth"
	"github.com/castlemilk/grocerylens/backend/internal/extraction"
	"github.com/castlemilk/grocerylens/backend/internal/store"
	"github.com/rotisserie/eris"
)

// mapExtractionError maps extraction errors to Connect-RPC error codes.
func mapExtractionError(err error) *connect.Error {
	extErr, ok := extraction.AsExtractionError(err)
	if !ok {
		return connect.NewError(connect.CodeInternal, eris.Wrap(err, "extraction failed"))
	}

	msg := errors.New(extErr.Message)
	switch extErr.Code {
	case extraction.ErrOCRRateLimited:
		return connect.NewError(connect.CodeResourceExhausted, msg)
	case extraction.ErrOCRUnavailable:
		return connect.NewError(connect.CodeUnavailable, msg)
	case extraction.ErrAllMethodsFailed:
		return connect.NewError(connect.CodeUnavailable,
			errors.New("all recognition methods failed, try again later or enter the receipt manually"))
	case extraction.ErrInvalidImage:
		return connect.NewError(connect.CodeInvalidArgument, msg)
	case extraction.ErrNoItemsFound:
		return connect.NewError(connect.CodeFailedPrecondition, msg)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("extraction failed: %s", extErr.Message))
	}
}

// mapStoreError maps store errors to Connect-RPC error codes.
func mapStoreError(operation string, err error) *connect.Error {
	if store.IsNotFound(err) {
		return connect.NewError(connect.CodeNotFound, eris.Wrapf(err, "%s", operation))
	}
	return connect.NewError(connect.CodeInternal, auth.WrapStoreError(operation, err))
}

func invalidArgument(format string, args ...any) *connect.Error {
	return connect.NewError(connect.CodeInvalidArgument, eris.Errorf(format, args...))
}
