package ethereum

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/blockchain/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

type fakeSub struct {
	errc chan error
	once sync.Once
}

func (s *fakeSub) Err() <-chan error { return s.errc }
func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errc) }) }

type fakeNode struct {
	mu     sync.Mutex
	heads  chan<- *types.Header
	latest *types.Header
	closed atomic.Int32
}

func (n *fakeNode) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.heads = ch
	return &fakeSub{errc: make(chan error, 1)}, nil
}

func (n *fakeNode) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.latest == nil {
		return nil, errors.New("no head yet")
	}
	return n.latest, nil
}

func (n *fakeNode) Close() { n.closed.Add(1) }

func (n *fakeNode) subscribed() chan<- *types.Header {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.heads
}

func header(num int64, extra byte) *types.Header {
	return &types.Header{
		Number:     big.NewInt(num),
		Difficulty: big.NewInt(0),
		Time:       1_700_000_000,
		Extra:      []byte{extra},
	}
}

// dialer serves node for the URLs in ok and fails for every other URL.
func dialer(node *fakeNode, ok ...string) dialFunc {
	return func(ctx context.Context, url string) (headSource, error) {
		for _, u := range ok {
			if u == url {
				return node, nil
			}
		}
		return nil, errors.New("connection refused")
	}
}

func newTestSubscriber(t *testing.T, dial dialFunc) *Subscriber {
	t.Helper()
	cfg := DefaultSubscriberConfig("ws://node", "http://node")
	cfg.PollInterval = 5 * time.Millisecond
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	cfg.WSAttempts = 1
	cfg.WSRetryInterval = time.Hour

	s, err := newSubscriber(cfg, dial, logger.New(io.Discard, logger.LevelError, "test", nil))
	if err != nil {
		t.Fatalf("newSubscriber: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func recv(t *testing.T, ch <-chan *domain.Block) *domain.Block {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no block received")
		return nil
	}
}

func TestSubscriber_WebsocketSkipsDuplicatesKeepsReorgs(t *testing.T) {
	node := &fakeNode{}
	s := newTestSubscriber(t, dialer(node, "ws://node"))

	var heard atomic.Int32
	s.OnBlock(func(context.Context, *domain.Block) { heard.Add(1) })

	blocks, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, "head subscription", func() bool { return node.subscribed() != nil })

	heads := node.subscribed()
	heads <- header(1, 0)
	heads <- header(1, 0)
	heads <- header(2, 0)
	heads <- header(2, 1)
	heads <- header(1, 2)

	want := []struct {
		num   uint64
		extra byte
	}{{1, 0}, {2, 0}, {2, 1}}
	for _, w := range want {
		b := recv(t, blocks)
		if b.Number != w.num || b.Hash != header(int64(w.num), w.extra).Hash() {
			t.Errorf("got block %d %s, want %d with extra %d", b.Number, b.Hash.Hex(), w.num, w.extra)
		}
	}
	waitFor(t, "listeners", func() bool { return heard.Load() == 3 })

	st := s.Status()
	if st.State != domain.StateConnected || st.UsingHTTP || st.LastBlock != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestSubscriber_FallsBackToHTTPPolling(t *testing.T) {
	node := &fakeNode{latest: header(5, 0)}
	s := newTestSubscriber(t, dialer(node, "http://node"))

	blocks, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if b := recv(t, blocks); b.Number != 5 || b.Source != "http" {
		t.Fatalf("block = %d from %q, want 5 from http", b.Number, b.Source)
	}

	// Later polls return the same head and must not republish it.
	time.Sleep(30 * time.Millisecond)
	select {
	case b := <-blocks:
		t.Fatalf("duplicate block %d published", b.Number)
	default:
	}

	if !s.Status().UsingHTTP {
		t.Error("status does not report http fallback")
	}

	latest, err := s.LatestBlock(context.Background())
	if err != nil || latest.Number != 5 || latest.Source != "rpc" {
		t.Errorf("LatestBlock = %v, %v", latest, err)
	}
}

func TestSubscriber_StatusCarriesBaseFee(t *testing.T) {
	node := &fakeNode{}
	s := newTestSubscriber(t, dialer(node, "ws://node"))

	blocks, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, "head subscription", func() bool { return node.subscribed() != nil })

	h := header(3, 0)
	h.GasLimit, h.GasUsed = 30_000_000, 15_000_000
	h.BaseFee = gwei(20)
	node.subscribed() <- h

	b := recv(t, blocks)
	if b.Source != "ws" || b.NextBaseFee().Cmp(gwei(20)) != 0 {
		t.Errorf("block source %q next base fee %v", b.Source, b.NextBaseFee())
	}
	if st := s.Status(); !st.BaseFeeGwei.Equal(decimal.NewFromInt(20)) {
		t.Errorf("status base fee = %s, want 20", st.BaseFeeGwei)
	}
}

func TestSubscriber_ConnectFailsWhenBothTransportsFail(t *testing.T) {
	s := newTestSubscriber(t, dialer(&fakeNode{}))

	_, err := s.Subscribe(context.Background())
	if apperror.GetCode(err) != apperror.CodeEthereumConnectionFailed {
		t.Fatalf("err = %v, want %s", err, apperror.CodeEthereumConnectionFailed)
	}
	if s.State() != domain.StateDisconnected {
		t.Errorf("state = %s", s.State())
	}
}

func TestSubscriber_CloseStopsAndClosesChannel(t *testing.T) {
	node := &fakeNode{}
	s := newTestSubscriber(t, dialer(node, "ws://node"))

	blocks, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, "head subscription", func() bool { return node.subscribed() != nil })

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-blocks; ok {
		t.Error("block channel still open after Close")
	}
	if node.closed.Load() == 0 {
		t.Error("ws client not closed")
	}
	if _, err := s.Subscribe(context.Background()); err == nil {
		t.Error("Subscribe after Close succeeded")
	}
}
