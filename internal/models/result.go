package models

// Channel identifies a notification delivery mechanism.
type Channel string

// Supported channels, in dispatch order.
const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ChannelResult records the decision taken for one channel of one event. A
// channel that was not requested always reports Success with no Error.
type ChannelResult struct {
	Channel   Channel `json:"channel"`
	Requested bool    `json:"requested"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
}

// Settled reports whether the channel does not block a commit.
func (r ChannelResult) Settled() bool {
	return !r.Requested || r.Success
}

// ProcessingResult aggregates the channel results for one event. ChannelResults
// always holds exactly one entry per channel: email first, then sms.
type ProcessingResult struct {
	EventID               string          `json:"event_id"`
	AppointmentID         string          `json:"appointment_id"`
	ChannelResults        []ChannelResult `json:"channel_results"`
	AllRequestedSucceeded bool            `json:"all_requested_succeeded"`
}

// Result returns the result recorded for the supplied channel.
func (p ProcessingResult) Result(ch Channel) (ChannelResult, bool) {
	for _, r := range p.ChannelResults {
		if r.Channel == ch {
			return r, true
		}
	}
	return ChannelResult{}, false
}
