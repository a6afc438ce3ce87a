package session

import (
	"context"
	"errors"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/gateway"
)

// Message turns an operation error into a sentence fit for a form.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var statusErr *gateway.StatusError

	detail := ""
	if errors.As(err, &statusErr) {
		detail = statusErr.Detail
	}

	switch {
	case errors.Is(err, ErrOperationInProgress):
		return "Another sign-in request is still running. Please wait."
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return "An account with this email already exists."
	case errors.Is(err, domain.ErrValidation) && detail != "":
		return detail
	case errors.Is(err, domain.ErrValidation):
		return "Some of the details you entered are invalid."
	case errors.Is(err, ErrStorageUnavailable):
		return "Your session could not be saved on this device. Please try again."
	case errors.Is(err, domain.ErrInvalidAuthToken):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond. Please try again."
	case detail != "":
		return detail
	default:
		return "Could not reach the server. Please try again."
	}
}
