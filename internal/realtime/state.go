package realtime

// State describes connection health as reported by the transport and the
// channel lifecycle. Transitions are reported, not validated; any transition
// may arrive.
type State string

const (
	StateUninitialized State = "Uninitialized"
	StateInitializing  State = "Initializing"
	StateConnecting    State = "Connecting"
	StateConnected     State = "Connected"
	StateDisconnected  State = "Disconnected"
	StateError         State = "Error"
	StateAuthorizing   State = "Authorizing"
	StateAuthorized    State = "Authorized"
	StateAuthError     State = "AuthError"
)
