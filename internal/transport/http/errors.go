package httptransport

import (
	"catalogdns/internal/catalog"
)

// errorMessages maps a sentinel business error to the message returned
// in the response envelope.
var errorMessages = map[error]string{
	catalog.ErrNotFound:       "domain not found",
	catalog.ErrInvalidDomain:  "invalid domain specification",
}

// GetErrorMessage returns the response message for err, falling back to
// err.Error() for anything not in errorMessages.
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

const (
	MsgInvalidRequest   = "malformed request"
	MsgInvalidJSON      = "malformed JSON body"
	MsgRequestBodyEmpty = "request body must not be empty"

	MsgAuthRequired     = "admin authentication required"
	MsgPermissionDenied = "permission denied"

	MsgDomainAddFailed    = "failed to add domain"
	MsgDomainListFailed   = "failed to list domains"
	MsgDomainGetFailed    = "failed to get domain"
	MsgDomainDeleteFailed = "failed to delete domain"
	MsgDomainNotFound     = "domain not found"

	MsgForceVerifyFailed = "failed to force verify domain"
	MsgStatsFailed       = "failed to compute stats"

	MsgInternalError = "internal server error, please try again later"
)
