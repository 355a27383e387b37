package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworks_Select(t *testing.T) {
	eth, poly := &mockComm{}, &mockComm{}
	n := Networks{CommunicatorChainID: 42, Communicator: eth, Fallback: poly}

	c, err := n.Select(42)
	require.NoError(t, err)
	assert.Same(t, eth, c)

	c, err = n.Select(80001)
	require.NoError(t, err)
	assert.Same(t, poly, c)
}

func TestNetworks_SelectMissing(t *testing.T) {
	n := Networks{CommunicatorChainID: 42, Communicator: &mockComm{}}
	_, err := n.Select(137)
	assert.Error(t, err)
}
