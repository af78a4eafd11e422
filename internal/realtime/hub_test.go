package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePubSub struct {
	published []fakePublish
	handlers  map[uuid.UUID]func(event string, payload []byte)
	cancelled int
	pubErr    error
}

type fakePublish struct {
	userID  uuid.UUID
	event   string
	payload []byte
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{handlers: make(map[uuid.UUID]func(event string, payload []byte))}
}

func (f *fakePubSub) PublishUserEvent(userID uuid.UUID, event string, payload []byte) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, fakePublish{userID: userID, event: event, payload: payload})
	// loop back like a real broker would
	if h, ok := f.handlers[userID]; ok {
		h(event, payload)
	}
	return nil
}

func (f *fakePubSub) SubscribeUser(userID uuid.UUID, handler func(event string, payload []byte)) (func(), error) {
	f.handlers[userID] = handler
	return func() {
		delete(f.handlers, userID)
		f.cancelled++
	}, nil
}

func newTestClient(userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		send:   make(chan WSMessage, 8),
	}
}

func TestHubEmitToUserDeliversToAllConnections(t *testing.T) {
	ps := newFakePubSub()
	hub := NewHub(zap.NewNop(), ps, ps)

	userID := uuid.New()
	c1 := newTestClient(userID)
	c2 := newTestClient(userID)
	other := newTestClient(uuid.New())
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(other)

	hub.EmitToUser(userID, "notification", map[string]string{"message": "hello"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			assert.Equal(t, "notification", msg.Event)
			var body map[string]string
			require.NoError(t, json.Unmarshal(msg.Data, &body))
			assert.Equal(t, "hello", body["message"])
		default:
			t.Fatal("expected a message on the client send channel")
		}
	}
	assert.Empty(t, other.send)
	assert.Len(t, ps.published, 1)
}

func TestHubEmitFallsBackToLocalOnPublishError(t *testing.T) {
	ps := newFakePubSub()
	ps.pubErr = assert.AnError
	hub := NewHub(zap.NewNop(), ps, ps)

	userID := uuid.New()
	c := newTestClient(userID)
	hub.Register(c)

	hub.EmitToUser(userID, "notification", map[string]string{"message": "hi"})

	select {
	case msg := <-c.send:
		assert.Equal(t, "notification", msg.Event)
	default:
		t.Fatal("expected local delivery when publish fails")
	}
}

func TestHubUnregisterCancelsSubscriptionOnLastClient(t *testing.T) {
	ps := newFakePubSub()
	hub := NewHub(zap.NewNop(), ps, ps)

	userID := uuid.New()
	c1 := newTestClient(userID)
	c2 := newTestClient(userID)
	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.ConnectionCount(userID))
	assert.Len(t, ps.handlers, 1)

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ConnectionCount(userID))
	assert.Equal(t, 0, ps.cancelled)

	hub.Unregister(c2)
	assert.Equal(t, 0, hub.ConnectionCount(userID))
	assert.Equal(t, 1, ps.cancelled)
}

func TestHubWithoutRedisDeliversLocally(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	userID := uuid.New()
	c := newTestClient(userID)
	hub.Register(c)

	hub.EmitToUser(userID, "notification", map[string]int{"n": 1})

	select {
	case msg := <-c.send:
		assert.Equal(t, "notification", msg.Event)
	default:
		t.Fatal("expected local delivery without redis")
	}
}
