package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/sysaction"
)

// Message is a call applied to the ledger. Only messages to
// params.SystemActionAddress are executable.
type Message struct {
	from  common.Address
	to    common.Address
	nonce uint64
	data  []byte
}

// NewMessage creates a system action message from sender carrying data.
// The nonce is assigned by the ledger when the message is applied.
func NewMessage(from common.Address, data []byte) Message {
	return Message{from: from, to: params.SystemActionAddress, data: data}
}

// NewActionMessage encodes kind and payload into a system action message.
func NewActionMessage(from common.Address, kind sysaction.ActionKind, payload interface{}) (Message, error) {
	data, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		return Message{}, err
	}
	return NewMessage(from, data), nil
}

func (m Message) From() common.Address { return m.from }
func (m Message) To() *common.Address  { return &m.to }
func (m Message) Nonce() uint64        { return m.nonce }
func (m Message) Data() []byte         { return m.data }

// Hash identifies the message in receipts and logs. It covers the sender,
// nonce and data, so replays of the same payload hash differently.
func (m Message) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes([]interface{}{m.from, m.to, m.nonce, m.data})
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}
