package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/PowerDNS/simpleblob"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/config"
	"github.com/sagestream/sagestream/programs/sage"
	"github.com/sagestream/sagestream/projection"
	"github.com/sagestream/sagestream/registry"
	"github.com/sagestream/sagestream/rpc"
	"github.com/sagestream/sagestream/snapshot"
)

// program is a configured program with its resolved account types
type program struct {
	name    string
	id      account.Pubkey
	entries []registry.Entry
}

func (p program) discriminators() []account.Discriminator {
	return lo.Map(p.entries, func(e registry.Entry, _ int) account.Discriminator {
		return e.Discriminator
	})
}

// resolveProgram resolves the account types of a configured program. Without
// explicit types, all types the registry knows for the program id are used.
func resolveProgram(reg *registry.Registry, name string, pc config.Program) (program, error) {
	id, err := account.ParsePubkey(pc.ID)
	if err != nil {
		return program{}, fmt.Errorf("program %q: %w", name, err)
	}
	p := program{name: name, id: id}
	if len(pc.Types) == 0 {
		p.entries = reg.ForProgram(id)
	}
	for _, typeName := range pc.Types {
		e, ok := reg.ByName(typeName)
		if !ok {
			return program{}, fmt.Errorf("program %q: unknown account type %q", name, typeName)
		}
		p.entries = append(p.entries, e)
	}
	if len(p.entries) == 0 {
		return program{}, fmt.Errorf("program %q: no known account types for %s", name, id)
	}
	return p, nil
}

// programs returns the configured programs sorted by name. If only is not
// empty, just that program is returned, even if it is disabled.
func programs(reg *registry.Registry, only string) ([]program, error) {
	names := lo.Keys(conf.Programs)
	sort.Strings(names)
	var res []program
	for _, name := range names {
		pc := conf.Programs[name]
		if only != "" && name != only {
			continue
		}
		if only == "" && pc.Disabled {
			logrus.WithField("program", name).Info("Program disabled")
			continue
		}
		p, err := resolveProgram(reg, name, pc)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if only != "" && len(res) == 0 {
		return nil, fmt.Errorf("program %q not configured", only)
	}
	return res, nil
}

// relations returns all relation names the registry can project into
func relations(reg *registry.Registry) []string {
	names := lo.Map(reg.Entries(), func(e registry.Entry, _ int) string {
		return e.Relation
	})
	names = append(names,
		sage.RelationFleetStates,
		sage.RelationFleetShipsInfos,
	)
	if conf.Store.RawAccounts {
		names = append(names, projection.RelationRawAccounts)
	}
	names = lo.Uniq(names)
	sort.Strings(names)
	return names
}

func openStorage(ctx context.Context) (simpleblob.Interface, error) {
	st, err := simpleblob.GetBackend(ctx, conf.Storage.Type, conf.Storage.Options)
	if err != nil {
		return nil, err
	}
	logrus.WithField("storage_type", conf.Storage.Type).Debug("Storage backend initialised")
	return st, nil
}

func openStore(ctx context.Context) (projection.Store, error) {
	store, err := projection.Open(ctx, conf.Store)
	if err != nil {
		return nil, err
	}
	logrus.WithField("store_type", conf.Store.Type).Debug("Projection store opened")
	return store, nil
}

func newClient() *rpc.Client {
	return rpc.NewClient(rpc.Options{
		URL:        conf.RPC.URL,
		Commitment: conf.RPC.Commitment,
		Timeout:    conf.RPC.FetchTimeout,
	})
}

func newPubSub() (*rpc.PubSub, error) {
	wsURL := conf.RPC.WebsocketURL
	if wsURL == "" {
		var err error
		wsURL, err = rpc.WebsocketURL(conf.RPC.URL)
		if err != nil {
			return nil, fmt.Errorf("rpc.url: %w", err)
		}
	}
	return rpc.NewPubSub(rpc.PubSubOptions{
		URL:        wsURL,
		Commitment: conf.RPC.Commitment,
	}), nil
}

func collect(ctx context.Context, f snapshot.Fetcher, p program) (*snapshot.Archive, error) {
	return snapshot.Collect(ctx, f, p.name, p.id, p.discriminators(), snapshot.CollectOptions{
		Concurrency: conf.RPC.FetchConcurrency,
		Timeout:     conf.RPC.FetchTimeout,
	})
}
