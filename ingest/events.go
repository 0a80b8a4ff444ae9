package ingest

import (
	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/utils/topics"
)

// NewEvents returns a new Events instance
func NewEvents() *Events {
	return &Events{
		Applied: topics.New[AppliedInfo](),
		Status:  topics.New[Result](),
	}
}

// Events contains topics that can be subscribed to.
// Publishing blocks while a subscriber buffer is full, so subscribers must
// keep reading until they close.
type Events struct {
	// Applied is published for every update that was written to the store,
	// only while it has subscribers
	Applied *topics.Topic[AppliedInfo]
	// Status is published when a subscription stream finishes
	Status *topics.Topic[Result]
}

type AppliedInfo struct {
	Program  string
	Pubkey   account.Pubkey
	Relation string
	Slot     uint64
}
