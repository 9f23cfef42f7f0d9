package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request layer.
	ErrBadRequest        = "E_BAD_REQUEST"
	ErrBadSlot           = "E_BAD_SLOT"
	ErrNoActiveContainer = "E_NO_ACTIVE_CONTAINER"
	ErrContainerNotFound = "E_CONTAINER_NOT_FOUND"

	// Placement rules.
	ErrEdgeOverflow   = "E_EDGE_OVERFLOW"
	ErrTargetOccupied = "E_TARGET_OCCUPIED"
	ErrNoSupport      = "E_NO_SUPPORT"

	// Removal rules.
	ErrBlockedAbove = "E_BLOCKED_ABOVE"

	// Crane scheduling.
	ErrOpInProgress = "E_OP_IN_PROGRESS"
	ErrOpAborted    = "E_OP_ABORTED"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBadRequest:        {},
	ErrBadSlot:           {},
	ErrNoActiveContainer: {},
	ErrContainerNotFound: {},
	ErrEdgeOverflow:      {},
	ErrTargetOccupied:    {},
	ErrNoSupport:         {},
	ErrBlockedAbove:      {},
	ErrOpInProgress:      {},
	ErrOpAborted:         {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
