package domain

// RelayOutcome is the terminal state of one relay attempt.
type RelayOutcome int

const (
	// OutcomeStreaming means headers were committed and the body was delivered.
	OutcomeStreaming RelayOutcome = iota
	// OutcomeFailedBeforeHeaders means nothing reached the client; a fallback is allowed.
	OutcomeFailedBeforeHeaders
	// OutcomeFailedMidStream means headers were committed; the connection must be torn down.
	OutcomeFailedMidStream
)

func (o RelayOutcome) String() string {
	switch o {
	case OutcomeStreaming:
		return "streaming"
	case OutcomeFailedBeforeHeaders:
		return "failed_before_headers"
	case OutcomeFailedMidStream:
		return "failed_mid_stream"
	default:
		return "unknown"
	}
}

// Committed reports whether response headers were written to the client.
func (o RelayOutcome) Committed() bool {
	return o != OutcomeFailedBeforeHeaders
}

// RelaySource identifies which source served a relay.
type RelaySource string

const (
	SourcePrimary  RelaySource = "primary"
	SourceFallback RelaySource = "fallback"
)

// ParseRelayOutcome maps the String form back to a RelayOutcome.
func ParseRelayOutcome(s string) (RelayOutcome, bool) {
	switch s {
	case "streaming":
		return OutcomeStreaming, true
	case "failed_before_headers":
		return OutcomeFailedBeforeHeaders, true
	case "failed_mid_stream":
		return OutcomeFailedMidStream, true
	default:
		return 0, false
	}
}
