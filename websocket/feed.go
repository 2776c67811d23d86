// Package websocket streams JSON messages to WebSocket clients and hands
// the messages they send back to the application.
package websocket

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	MsgTypeHeartbeat = "heartbeat"
	MsgTypeError     = "error"

	// ErrTypeInvalidMessage is the type of errors returned when a client
	// message can't be decoded.
	ErrTypeInvalidMessage = "invalid_message"
)

// Message is the envelope of every message exchanged with clients.
type Message struct {
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage returns a message of the given type carrying data encoded in
// JSON. data can be nil.
func NewMessage(typ string, data any) (Message, error) {
	msg := Message{
		Type: typ,
		Time: time.Now(),
	}
	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Message{}, errors.New("encoding message data failed").
			WithTag("type", typ).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Message) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithTag("type", m.Type).
			Wrap(err)
	}
	return nil
}

// Feed broadcasts messages to its subscribers. Subscribers that do not keep
// up lose the messages that do not fit in their buffer.
type Feed struct {
	mutex       sync.Mutex
	subscribers map[*Subscription]struct{}
}

// Subscribe returns a subscription buffering up to size messages.
func (f *Feed) Subscribe(size int) *Subscription {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.subscribers == nil {
		f.subscribers = make(map[*Subscription]struct{})
	}

	s := &Subscription{
		feed: f,
		msgs: make(chan []byte, max(size, 1)),
	}
	f.subscribers[s] = struct{}{}
	return s
}

// Publish encodes a message and sends it to every subscriber.
func (f *Feed) Publish(typ string, data any) error {
	msg, err := NewMessage(typ, data)
	if err != nil {
		return err
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.New("encoding message failed").
			WithTag("type", typ).
			Wrap(err)
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	for s := range f.subscribers {
		select {
		case s.msgs <- b:
		default:
			instrumentDroppedMsg(queueFeed)
		}
	}
	return nil
}

// Subscribers returns the number of subscriptions.
func (f *Feed) Subscribers() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.subscribers)
}

func (f *Feed) unsubscribe(s *Subscription) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	delete(f.subscribers, s)
}

// Subscription receives the encoded messages published on a feed.
type Subscription struct {
	feed *Feed
	msgs chan []byte
	once sync.Once
}

// Messages returns the channel where published messages are received.
func (s *Subscription) Messages() <-chan []byte {
	return s.msgs
}

// Close stops receiving messages.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.unsubscribe(s)
	})
}
