package model

// TransportLimit is the hard per-message size budget of the SMS channel.
const TransportLimit = 160

// PersonalizedMessage is the rendered SMS body for one segment member.
type PersonalizedMessage struct {
	Customer  CustomerRecord `json:"customer"`
	Body      string         `json:"body"`
	CharCount int            `json:"char_count"`
	Truncated bool           `json:"truncated"`
}
