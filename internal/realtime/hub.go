package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelBookings is the Redis pub/sub channel carrying booking events,
// so every server instance sees events regardless of which one produced them.
const ChannelBookings = "realtime:bookings"

// Event types pushed to connected admin dashboards.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
)

// Event is a booking lifecycle notification.
type Event struct {
	Type             string    `json:"type"`
	BookingID        uuid.UUID `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	TourID           uuid.UUID `json:"tour_id"`
	TourName         string    `json:"tour_name,omitempty"`
	UserID           uuid.UUID `json:"user_id"`
	NumberOfPeople   int       `json:"number_of_people"`
	TotalAmount      float64   `json:"total_amount"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Hub fans booking events out to connected WebSocket clients. Events arrive
// over Redis pub/sub and locally via Publish.
type Hub struct {
	rdb    *redis.Client
	logger *zap.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates a hub backed by the given Redis client.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rdb:        rdb,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

// Publish sends a booking event to every instance's hub via Redis.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, ChannelBookings, raw).Err()
}

// Run drives the hub until ctx is cancelled. It subscribes to the booking
// channel and dispatches messages to registered clients.
func (h *Hub) Run(ctx context.Context) {
	sub := h.rdb.Subscribe(ctx, ChannelBookings)
	defer sub.Close()

	go func() {
		for msg := range sub.Channel() {
			select {
			case h.broadcast <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	clients := make(map[*Client]struct{})
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				c.close()
			}
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			h.logger.Info("realtime client connected", zap.String("user_id", c.userID.String()), zap.Int("clients", len(clients)))
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				c.close()
				h.logger.Info("realtime client disconnected", zap.String("user_id", c.userID.String()), zap.Int("clients", len(clients)))
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer, drop it.
					delete(clients, c)
					c.close()
				}
			}
		}
	}
}
