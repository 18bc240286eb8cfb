package inventory

// ATP is the available-to-promise view of a stock position
type ATP struct {
	OnHand                 int  `json:"on_hand"`
	Reserved               int  `json:"reserved"`
	Available              int  `json:"available"`
	Incoming               int  `json:"incoming"`
	Requested              int  `json:"requested"`
	CanFulfill             bool `json:"can_fulfill"`
	Shortfall              int  `json:"shortfall"`
	CanFulfillWithIncoming bool `json:"can_fulfill_with_incoming"`
}

// NewATP derives availability figures from raw stock numbers
func NewATP(onHand, reserved, incoming, requested int) ATP {
	available := onHand - reserved
	return ATP{
		OnHand:                 onHand,
		Reserved:               reserved,
		Available:              available,
		Incoming:               incoming,
		Requested:              requested,
		CanFulfill:             available >= requested,
		Shortfall:              max(0, requested-available),
		CanFulfillWithIncoming: available+incoming >= requested,
	}
}
