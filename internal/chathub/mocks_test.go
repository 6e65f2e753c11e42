package chathub_test

import (
	"context"
	"errors"
	"sync"

	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of chathub.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindRoom(ctx context.Context, roomID uint) (*models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStore) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) StoreMessage(ctx context.Context, roomID, userID uint, text string) (*models.Message, error) {
	args := m.Called(ctx, roomID, userID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// MockAuthenticator is a testify mock of chathub.Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var errSendFailed = errors.New("send failed")

// fakeChannel records what it is sent. With fail set every Send errors.
// onSend, when set, runs at the start of every Send.
type fakeChannel struct {
	mu     sync.Mutex
	events []models.Event
	closed bool
	fail   bool
	onSend func()
}

func (c *fakeChannel) Send(event models.Event) error {
	if c.onSend != nil {
		c.onSend()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errSendFailed
	}
	if c.closed {
		return chathub.ErrClientClosed
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) Events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readResult is one scripted outcome of fakeTransport.ReadMessage.
type readResult struct {
	data []byte
	err  error
}

// fakeTransport is a Transport whose inbound side is fed through a channel.
// Once inbound is exhausted ReadMessage blocks until Close.
type fakeTransport struct {
	fakeChannel
	inbound   chan readResult
	closeOnce sync.Once
	done      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan readResult, 16),
		done:    make(chan struct{}),
	}
}

func (t *fakeTransport) push(text string) { t.inbound <- readResult{data: []byte(text)} }

func (t *fakeTransport) drop(err error) { t.inbound <- readResult{err: err} }

func (t *fakeTransport) Close() error {
	t.fakeChannel.Close()
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case r := <-t.inbound:
		return r.data, r.err
	case <-t.done:
		return nil, chathub.ErrClientClosed
	}
}
