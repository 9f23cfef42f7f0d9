package yard

// Denial is a rejected request carrying a protocol error code. Planner
// and validator return it instead of mutating anything; handlers turn
// it into an ACTION_RESULT event.
type Denial struct {
	Code     string
	Message  string
	Blockers []string // container ids pinning a blocked removal
}

func deny(code, message string) *Denial {
	return &Denial{Code: code, Message: message}
}
