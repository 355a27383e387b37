package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the members the service touches are declared.
const coreABIJSON = `[
	{"type":"event","name":"PublicKeyRegistered","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"publicKey","type":"bytes","indexed":false}]},
	{"type":"function","name":"channels","stateMutability":"view",
		"inputs":[{"name":"","type":"address"}],
		"outputs":[
			{"name":"channelType","type":"uint8"},
			{"name":"channelState","type":"uint8"},
			{"name":"verifiedBy","type":"address"}]}
]`

const communicatorABIJSON = `[
	{"type":"function","name":"sendNotification","stateMutability":"nonpayable",
		"inputs":[
			{"name":"_channel","type":"address"},
			{"name":"_recipient","type":"address"},
			{"name":"_identity","type":"bytes"}],
		"outputs":[]}
]`

const (
	eventPublicKeyRegistered = "PublicKeyRegistered"
	methodChannels           = "channels"
	methodSendNotification   = "sendNotification"
)

var (
	coreABI         = mustParse(coreABIJSON)
	communicatorABI = mustParse(communicatorABIJSON)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("chain: invalid ABI: " + err.Error())
	}
	return parsed
}
