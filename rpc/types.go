package rpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
)

const jsonrpcVersion = "2.0"

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func newRequest(id uint64, method string, params ...interface{}) request {
	return request{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// message covers responses and pubsub notifications
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is an error object returned by the node
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type accountConfig struct {
	Encoding    string   `json:"encoding"`
	Commitment  string   `json:"commitment,omitempty"`
	WithContext bool     `json:"withContext,omitempty"`
	Filters     []filter `json:"filters,omitempty"`
}

type filter struct {
	Memcmp *memcmp `json:"memcmp,omitempty"`
}

type memcmp struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"` // base58
}

// uiAccount is the JSON account representation with base64 data
type uiAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      uint64   `json:"space"`
}

func (a uiAccount) raw() (account.RawAccount, error) {
	var raw account.RawAccount
	if len(a.Data) != 2 {
		return raw, errors.Errorf("unexpected data field with %d elements", len(a.Data))
	}
	if a.Data[1] != "base64" {
		return raw, errors.Errorf("unexpected data encoding %q", a.Data[1])
	}
	data, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return raw, errors.Wrap(err, "decode data")
	}
	owner, err := account.ParsePubkey(a.Owner)
	if err != nil {
		return raw, errors.Wrap(err, "owner")
	}
	raw.Lamports = a.Lamports
	raw.Data = data
	raw.Owner = owner
	raw.Executable = a.Executable
	raw.RentEpoch = a.RentEpoch
	return raw, nil
}

type keyedAccount struct {
	Pubkey  string    `json:"pubkey"`
	Account uiAccount `json:"account"`
}

func (ka keyedAccount) keyed() (account.Keyed, error) {
	pk, err := account.ParsePubkey(ka.Pubkey)
	if err != nil {
		return account.Keyed{}, err
	}
	raw, err := ka.Account.raw()
	if err != nil {
		return account.Keyed{}, errors.Wrapf(err, "account %s", ka.Pubkey)
	}
	return account.Keyed{Pubkey: pk, Account: raw}, nil
}

type programAccountsResult struct {
	Context rpcContext     `json:"context"`
	Value   []keyedAccount `json:"value"`
}

type programNotification struct {
	Result struct {
		Context rpcContext   `json:"context"`
		Value   keyedAccount `json:"value"`
	} `json:"result"`
	Subscription uint64 `json:"subscription"`
}
