// Package rpc talks to a ledger node: JSON-RPC over HTTP for bulk account
// fetches and the websocket PubSub API for live program subscriptions.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/sagestream/sagestream/account"
)

const (
	DefaultCommitment = "confirmed"
	DefaultTimeout    = 10 * time.Minute

	// maxErrorBody limits how much of a non-200 response body is included
	// in the error.
	maxErrorBody = 512
)

// Options configure a Client
type Options struct {
	URL        string
	Commitment string        // defaults to DefaultCommitment
	Timeout    time.Duration // per request, defaults to DefaultTimeout
	HTTPClient *http.Client  // optional
	Logger     logrus.FieldLogger
}

// NewClient creates a new JSON-RPC Client
func NewClient(opt Options) *Client {
	if opt.Commitment == "" {
		opt.Commitment = DefaultCommitment
	}
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultTimeout
	}
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opt.Timeout}
	}
	l := opt.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Client{
		url:        opt.URL,
		commitment: opt.Commitment,
		hc:         hc,
		l:          l.WithField("component", "rpc"),
	}
}

// Client is a JSON-RPC client. It is safe for concurrent use.
type Client struct {
	url        string
	commitment string
	hc         *http.Client
	l          logrus.FieldLogger
	lastID     atomic.Uint64
}

// GetProgramAccounts fetches all accounts owned by the program whose data
// starts with the given discriminator. The returned Batch carries the slot
// at which the node evaluated the request.
func (c *Client) GetProgramAccounts(ctx context.Context, program account.Pubkey, d account.Discriminator) (account.Batch, error) {
	cfg := accountConfig{
		Encoding:    "base64",
		Commitment:  c.commitment,
		WithContext: true,
		Filters: []filter{
			{Memcmp: &memcmp{Offset: 0, Bytes: base58.Encode(d[:])}},
		},
	}
	var res programAccountsResult
	if err := c.call(ctx, "getProgramAccounts", &res, program.String(), cfg); err != nil {
		return account.Batch{}, err
	}

	batch := account.Batch{
		Slot:     res.Context.Slot,
		Accounts: make([]account.Keyed, 0, len(res.Value)),
	}
	for _, ka := range res.Value {
		k, err := ka.keyed()
		if err != nil {
			return account.Batch{}, errors.Wrap(err, "getProgramAccounts")
		}
		batch.Accounts = append(batch.Accounts, k)
	}
	c.l.WithFields(logrus.Fields{
		"program":       program.String(),
		"discriminator": d.String(),
		"accounts":      len(batch.Accounts),
		"slot":          batch.Slot,
	}).Debug("Fetched program accounts")
	return batch, nil
}

// GetSlot returns the current slot of the node
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	cfg := map[string]string{"commitment": c.commitment}
	if err := c.call(ctx, "getSlot", &slot, cfg); err != nil {
		return 0, err
	}
	return slot, nil
}

func (c *Client) call(ctx context.Context, method string, out interface{}, params ...interface{}) (err error) {
	t0 := time.Now()
	defer func() {
		metricRequestDuration.WithLabelValues(method).Observe(time.Since(t0).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		metricRequests.WithLabelValues(method, result).Inc()
	}()

	body, err := json.Marshal(newRequest(c.lastID.Inc(), method, params...))
	if err != nil {
		return errors.Wrap(err, method)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrap(err, method)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Errorf("%s: http status %d: %s",
			method, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var msg message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return errors.Wrapf(err, "%s: decode response", method)
	}
	if msg.Error != nil {
		return errors.Wrap(msg.Error, method)
	}
	if len(msg.Result) == 0 {
		return errors.Errorf("%s: response without result", method)
	}
	if err := json.Unmarshal(msg.Result, out); err != nil {
		return errors.Wrapf(err, "%s: decode result", method)
	}
	return nil
}
