package auction

import "errors"

var (
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrServiceError            = errors.New("llm service error")
	ErrMalformedResponse       = errors.New("malformed llm response")

	ErrInvalidDecision       = errors.New("invalid decision")
	ErrUnknownItem           = errors.New("unknown item")
	ErrDisallowedItem        = errors.New("item not in available items")
	ErrListingCapExceeded    = errors.New("listing cap reached")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrPriceCeilingExceeded  = errors.New("price exceeds ceiling")

	ErrExecutionFailed = errors.New("execution failed")
)

var rejections = []error{
	ErrInvalidDecision,
	ErrUnknownItem,
	ErrDisallowedItem,
	ErrListingCapExceeded,
	ErrInsufficientInventory,
	ErrPriceCeilingExceeded,
}

// ErrorKind returns a short stable label for err, used for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrCollaboratorUnavailable):
		return "collaborator_unavailable"
	case errors.Is(err, ErrServiceError):
		return "service_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrInvalidDecision):
		return "invalid_decision"
	case errors.Is(err, ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, ErrDisallowedItem):
		return "disallowed_item"
	case errors.Is(err, ErrListingCapExceeded):
		return "listing_cap_exceeded"
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrPriceCeilingExceeded):
		return "price_ceiling_exceeded"
	case errors.Is(err, ErrExecutionFailed):
		return "execution_failed"
	default:
		return "internal"
	}
}

// IsRejection reports whether err came from the validator chain.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
