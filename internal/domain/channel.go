package domain

// ChannelState values as stored by the core contract.
const (
	ChannelInactive    uint8 = 0
	ChannelActive      uint8 = 1
	ChannelDeactivated uint8 = 2
	ChannelBlocked     uint8 = 3
)

type Channel struct {
	Address     string `json:"address"`
	ChannelType uint8  `json:"channel_type"`
	State       uint8  `json:"channel_state"`
	VerifiedBy  string `json:"verified_by,omitempty"`
}

func (c Channel) Deactivated() bool { return c.State == ChannelDeactivated }

func (c Channel) Blocked() bool { return c.State == ChannelBlocked }
