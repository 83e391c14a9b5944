package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"go.uber.org/zap"
)

// Default client settings.
const (
	DefaultEndpoint    = "tcp://localhost:5555"
	DefaultTimeout     = 2 * time.Second
	DefaultDialTimeout = 5 * time.Second
	DefaultDialRetry   = 250 * time.Millisecond
)

// ClientConfig holds connection settings for the detection service.
type ClientConfig struct {
	// Endpoint is the service address, e.g. tcp://localhost:5555.
	Endpoint string
	// Timeout bounds one request/reply round trip.
	Timeout time.Duration
	// DialTimeout bounds the whole wait for the service to accept the
	// connection, attempts included.
	DialTimeout time.Duration
	// DialRetry is the pause between connection attempts.
	DialRetry time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.DialRetry <= 0 {
		c.DialRetry = DefaultDialRetry
	}
}

// ZMQClient implements Detector over a ZeroMQ REQ socket.
//
// REQ sockets are strictly send-then-receive, so requests are serialized
// and a request that times out abandons the socket: the next Detect dials
// a fresh one.
type ZMQClient struct {
	cfg    ClientConfig
	logger *zap.SugaredLogger
	parent context.Context

	mu     sync.Mutex
	sock   zmq4.Socket
	cancel context.CancelFunc
	closed bool
}

// NewZMQClient dials the detection service. A failure here is fatal for the
// caller: the service must be reachable at startup.
func NewZMQClient(ctx context.Context, cfg ClientConfig, logger *zap.SugaredLogger) (*ZMQClient, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &ZMQClient{
		cfg:    cfg,
		logger: logger.With("endpoint", cfg.Endpoint),
		parent: ctx,
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return c, nil
}

// Endpoint returns the service address the client dials.
func (c *ZMQClient) Endpoint() string {
	return c.cfg.Endpoint
}

// Detect implements Detector.
func (c *ZMQClient) Detect(ctx context.Context, encoded []byte) ([]Detection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%w: client closed", ErrServiceUnavailable)
	}
	if c.sock == nil {
		if err := c.connect(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		c.logger.Infow("reconnected to detection service")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	type reply struct {
		msg zmq4.Msg
		err error
	}
	replies := make(chan reply, 1)
	sock := c.sock
	go func() {
		if err := sock.Send(zmq4.NewMsg(encoded)); err != nil {
			replies <- reply{err: fmt.Errorf("send: %w", err)}
			return
		}
		msg, err := sock.Recv()
		if err != nil {
			err = fmt.Errorf("recv: %w", err)
		}
		replies <- reply{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		c.reset()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, c.cfg.Timeout)
		}
		return nil, ctx.Err()
	case r := <-replies:
		if r.err != nil {
			c.reset()
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, r.err)
		}
		return DecodeResponse(r.msg.Bytes())
	}
}

// Close tears down the connection.
func (c *ZMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return c.reset()
}

func (c *ZMQClient) connect() error {
	ctx, cancel := context.WithCancel(c.parent)
	sock := zmq4.NewReq(ctx,
		zmq4.WithDialerTimeout(c.cfg.DialTimeout),
		zmq4.WithDialerRetry(c.cfg.DialRetry),
		zmq4.WithDialerMaxRetries(dialAttempts(c.cfg.DialTimeout, c.cfg.DialRetry)),
	)
	if err := sock.Dial(c.cfg.Endpoint); err != nil {
		sock.Close()
		cancel()
		return fmt.Errorf("dial %s: %w", c.cfg.Endpoint, err)
	}

	c.sock = sock
	c.cancel = cancel
	return nil
}

// dialAttempts spreads retries across the dial timeout, so a service that is
// still starting up gets the full timeout to bind.
func dialAttempts(timeout, retry time.Duration) int {
	n := int((timeout + retry - 1) / retry)
	if n < 1 {
		n = 1
	}
	return n
}

// reset drops the current socket. Closing it unblocks a pending Recv.
func (c *ZMQClient) reset() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.cancel()
	c.sock = nil
	c.cancel = nil
	return err
}
