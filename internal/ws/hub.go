package ws

import (
	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/notify"
)

// Hub owns the live-connection registry: which users currently have websocket
// connections on this process. Each registered connection gets its own broker
// subscription, so fan-out events published anywhere (this process or another
// one behind the same NATS) reach every device of the addressed user.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	broker notify.Broker
	logger hclog.Logger
}

func NewHub(broker notify.Broker, logger hclog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		broker:     broker,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			unsub, err := h.broker.Subscribe(client.userID, client.deliver)
			if err != nil {
				h.logger.Error("subscribe failed", "user", client.userID, "error", err)
				client.close()
				continue
			}
			client.unsubscribe = unsub
			h.clients[client] = true
			h.logger.Debug("client connected", "user", client.userID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if client.unsubscribe != nil {
					client.unsubscribe()
				}
				client.close()
				h.logger.Debug("client disconnected", "user", client.userID)
			}
		}
	}
}
