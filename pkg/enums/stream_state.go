package enums

// StreamState is the connection-side state of the order status stream. It is
// orthogonal to OrderStatus: connection churn never rewinds the order lifecycle.
type StreamState string

const (
	StreamStateConnecting   StreamState = "connecting"
	StreamStateLive         StreamState = "live"
	StreamStateReconnecting StreamState = "reconnecting"
	StreamStatePolling      StreamState = "polling"
	StreamStateErrored      StreamState = "errored"
	StreamStateClosed       StreamState = "closed"
)

// String implements fmt.Stringer.
func (s StreamState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StreamState.
func (s StreamState) IsValid() bool {
	switch s {
	case StreamStateConnecting, StreamStateLive, StreamStateReconnecting,
		StreamStatePolling, StreamStateErrored, StreamStateClosed:
		return true
	}
	return false
}
