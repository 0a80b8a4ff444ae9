package rpc

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/ingest"
)

const (
	DefaultSubscribeTimeout = 30 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultBufferSize       = 1024

	writeTimeout = 10 * time.Second
	subscribeID  = 1
)

// WebsocketURL derives the PubSub endpoint from the JSON-RPC HTTP endpoint.
// Like the node CLI tools, an explicit port is incremented by one.
func WebsocketURL(httpURL string) (string, error) {
	u, err := url.Parse(httpURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		return u.String(), nil
	default:
		return "", errors.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", errors.Wrap(err, "port")
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(n+1))
	}
	return u.String(), nil
}

// PubSubOptions configure a PubSub
type PubSubOptions struct {
	URL              string
	Commitment       string        // defaults to DefaultCommitment
	SubscribeTimeout time.Duration // defaults to DefaultSubscribeTimeout
	PingInterval     time.Duration // defaults to DefaultPingInterval
	BufferSize       int           // updates channel size
	Dialer           *websocket.Dialer
	Logger           logrus.FieldLogger
}

// NewPubSub creates a PubSub client
func NewPubSub(opt PubSubOptions) *PubSub {
	if opt.Commitment == "" {
		opt.Commitment = DefaultCommitment
	}
	if opt.SubscribeTimeout <= 0 {
		opt.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if opt.PingInterval <= 0 {
		opt.PingInterval = DefaultPingInterval
	}
	if opt.BufferSize <= 0 {
		opt.BufferSize = DefaultBufferSize
	}
	if opt.Dialer == nil {
		opt.Dialer = websocket.DefaultDialer
	}
	if opt.Logger == nil {
		opt.Logger = logrus.StandardLogger()
	}
	opt.Logger = opt.Logger.WithField("component", "pubsub")
	return &PubSub{opt: opt}
}

// PubSub opens program subscriptions over websocket. Every subscription
// uses its own connection.
type PubSub struct {
	opt PubSubOptions
}

// Subscribe subscribes to all account changes of the program.
func (p *PubSub) Subscribe(ctx context.Context, program account.Pubkey) (ingest.Subscription, error) {
	sub, err := p.subscribe(ctx, program)
	if err != nil {
		metricSubscriptions.WithLabelValues("error").Inc()
		return nil, err
	}
	metricSubscriptions.WithLabelValues("ok").Inc()
	return sub, nil
}

func (p *PubSub) subscribe(ctx context.Context, program account.Pubkey) (*subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opt.SubscribeTimeout)
	defer cancel()

	conn, resp, err := p.opt.Dialer.DialContext(ctx, p.opt.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	req := newRequest(subscribeID, "programSubscribe", program.String(), accountConfig{
		Encoding:   "base64",
		Commitment: p.opt.Commitment,
	})
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "programSubscribe")
	}

	// Wait for the subscription id. Anything else that arrives before it
	// is ignored.
	_ = conn.SetReadDeadline(deadline)
	var id uint64
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "programSubscribe: read response")
		}
		if msg.ID == nil || *msg.ID != subscribeID {
			continue
		}
		if msg.Error != nil {
			_ = conn.Close()
			return nil, errors.Wrap(msg.Error, "programSubscribe")
		}
		if err := json.Unmarshal(msg.Result, &id); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "programSubscribe: subscription id")
		}
		break
	}
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	s := &subscription{
		conn:    conn,
		id:      id,
		updates: make(chan account.Update, p.opt.BufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		l: p.opt.Logger.WithFields(logrus.Fields{
			"program":      program.String(),
			"subscription": id,
		}),
	}
	go s.readLoop()
	go s.pingLoop(p.opt.PingInterval)
	s.l.Info("Subscribed")
	return s, nil
}

type subscription struct {
	conn    *websocket.Conn
	id      uint64
	updates chan account.Update
	err     error // only read after updates was closed

	writeMu sync.Mutex
	closing atomic.Bool
	done    chan struct{} // closed by Unsubscribe
	stopped chan struct{} // closed when readLoop exits
	l       logrus.FieldLogger
}

func (s *subscription) Updates() <-chan account.Update {
	return s.updates
}

func (s *subscription) Err() error {
	return s.err
}

// Unsubscribe sends programUnsubscribe and closes the connection. The
// updates channel is closed without error afterwards.
func (s *subscription) Unsubscribe(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	err := s.write(ctx, newRequest(subscribeID+1, "programUnsubscribe", s.id))
	if err == nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
	}
	if cerr := s.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}

	select {
	case <-s.stopped:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	if err != nil {
		return errors.Wrap(err, "programUnsubscribe")
	}
	s.l.Info("Unsubscribed")
	return nil
}

func (s *subscription) write(ctx context.Context, v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	_ = s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteJSON(v)
}

func (s *subscription) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopped:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.l.WithError(err).Debug("Ping failed")
			}
		}
	}
}

func (s *subscription) readLoop() {
	defer close(s.stopped)
	defer close(s.updates)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			s.err = err
			s.l.WithError(err).Warn("Subscription stream failed")
			return
		}

		u, ok := s.parse(data)
		if !ok {
			continue
		}
		select {
		case s.updates <- u:
		case <-s.done:
			return
		}
	}
}

func (s *subscription) parse(data []byte) (account.Update, bool) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		metricNotificationErrors.Inc()
		s.l.WithError(err).Warn("Invalid message")
		return account.Update{}, false
	}
	if msg.Method != "programNotification" {
		// Responses to our own requests
		return account.Update{}, false
	}
	var n programNotification
	if err := json.Unmarshal(msg.Params, &n); err != nil {
		metricNotificationErrors.Inc()
		s.l.WithError(err).Warn("Invalid notification")
		return account.Update{}, false
	}
	if n.Subscription != s.id {
		return account.Update{}, false
	}
	k, err := n.Result.Value.keyed()
	if err != nil {
		metricNotificationErrors.Inc()
		s.l.WithError(err).Warn("Invalid notification account")
		return account.Update{}, false
	}
	metricNotifications.Inc()
	return account.UpdateFromRaw(k.Pubkey, k.Account, n.Result.Context.Slot), true
}
