package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event is emitted by a voting contract for every committed state change.
type Event struct {
	Name      string            `json:"name"`
	Contract  common.Address    `json:"contract"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// NewEvent builds an event from alternating key/value pairs.
func NewEvent(contract common.Address, at time.Time, name string, kv ...string) Event {
	ev := Event{Name: name, Contract: contract, Timestamp: at.Unix()}
	if len(kv) > 0 {
		ev.Fields = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ev.Fields[kv[i]] = kv[i+1]
		}
	}
	return ev
}

// Transaction is a signed call submitted to the ledger.
type Transaction struct {
	From      common.Address    `json:"from"`
	To        common.Address    `json:"to"`
	Method    string            `json:"method"`
	Args      map[string]string `json:"args,omitempty"`
	Nonce     uint64            `json:"nonce"`
	Signature []byte            `json:"signature"`
}

// Receipt records a committed transaction.
type Receipt struct {
	TxID       string         `json:"tx_id"`
	From       common.Address `json:"from"`
	To         common.Address `json:"to"`
	Method     string         `json:"method"`
	Events     []Event        `json:"events"`
	BlockIndex uint64         `json:"block_index"`
	Timestamp  int64          `json:"timestamp"`
}
