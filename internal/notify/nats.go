package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "parley.user"

// NatsBroker fans events out over core NATS, one subject per user. Core NATS
// (not JetStream) on purpose: delivery is at most once with no retention,
// matching the realtime channel's contract.
type NatsBroker struct {
	nc *nats.Conn
}

func NewNatsBroker(url string) (*NatsBroker, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsBroker{nc: nc}, nil
}

func subject(userID string) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, userID)
}

func (b *NatsBroker) Publish(userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.nc.Publish(subject(userID), data)
}

func (b *NatsBroker) Subscribe(userID string, fn func(Event)) (func(), error) {
	sub, err := b.nc.Subscribe(subject(userID), func(m *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject(userID), err)
	}
	return func() { sub.Unsubscribe() }, nil
}

func (b *NatsBroker) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}
