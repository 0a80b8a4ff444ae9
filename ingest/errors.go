package ingest

import (
	"fmt"

	"github.com/sagestream/sagestream/account"
)

// DecodeError is returned by Processor.Apply when a known account type could
// not be decoded. Nothing is written for the account in that case.
type DecodeError struct {
	Pubkey account.Pubkey
	Type   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s: %v", e.Type, e.Pubkey, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StoreError is returned by Processor.Apply when the projection store
// rejected a write.
type StoreError struct {
	Pubkey   account.Pubkey
	Relation string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Relation, e.Pubkey, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure of the update source: a failed subscribe,
// an abnormally terminated stream or a failed unsubscribe.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
