package delivery

import "errors"

// Networks holds the communicator handle of each supported network.
type Networks struct {
	// CommunicatorChainID is the designated communicator network.
	CommunicatorChainID int64
	Communicator        Communicator
	// Fallback serves every other chain id.
	Fallback Communicator
}

// Select returns the handle for the active chain: the communicator network's
// handle when the ids match, the fallback otherwise.
func (n Networks) Select(activeChainID int64) (Communicator, error) {
	c := n.Fallback
	if activeChainID == n.CommunicatorChainID {
		c = n.Communicator
	}
	if c == nil {
		return nil, errors.New("no communicator contract configured for this network")
	}
	return c, nil
}
