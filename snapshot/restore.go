package snapshot

import (
	"context"
	"fmt"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/ingest"
)

// Applier applies a single update, like ingest.Processor
type Applier interface {
	Apply(ctx context.Context, u account.Update) (ingest.Outcome, error)
}

type RestoreStats struct {
	Applied      int
	Skipped      int
	DecodeFailed int
	StoreFailed  int
}

// Restore replays every archived account as an update at Meta.Slot, in
// ascending discriminator order. Decode failures are counted and skipped.
// Store failures are counted too, and reported as an error at the end.
func Restore(ctx context.Context, a *Archive, p Applier) (RestoreStats, error) {
	var st RestoreStats
	for _, d := range a.Discriminators() {
		for _, e := range a.Groups[d] {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			u := account.UpdateFromRaw(e.Pubkey, e.Account, a.Meta.Slot)
			o, _ := p.Apply(ctx, u)
			switch o {
			case ingest.Applied:
				st.Applied++
			case ingest.Skipped:
				st.Skipped++
			case ingest.DecodeFailed:
				st.DecodeFailed++
			case ingest.StoreFailed:
				st.StoreFailed++
			}
		}
	}
	if st.StoreFailed > 0 {
		return st, fmt.Errorf("restore: %d store writes failed", st.StoreFailed)
	}
	return st, nil
}
