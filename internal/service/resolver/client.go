package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ForecastBench/internal/domain/models"
	drepo "ForecastBench/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a LabelStream backed by the ground-truth resolver's
// WebSocket feed. Each frame carries settled labels for (round, horizon)
// pairs as they resolve.
type Client struct {
	apiKey         string
	websocketURL   string
	horizons       []models.Horizon
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new resolver LabelStream.
func New(apiKey, websocketURL string, horizons []models.Horizon, reconnectDelay, pingInterval time.Duration) drepo.LabelStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		horizons:       horizons,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("resolver connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("resolver: connected")
	return nil
}

// Subscribe subscribes to configured horizons.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("resolver not connected")
	}
	for _, h := range c.horizons {
		msg := map[string]string{"type": "subscribe", "horizon": string(h)}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", h, err)
		}
		log.Printf("resolver: subscribed %s", h)
	}
	return nil
}

type wsResolution struct {
	Round   int    `json:"round"`
	Horizon string `json:"horizon"`
	Label   bool   `json:"label"`
	At      int64  `json:"at"` // ms
}

type wsMessage struct {
	Type string         `json:"type"`
	Data []wsResolution `json:"data"`
}

// Read streams LabelResolution events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.LabelResolution, <-chan error) {
	resolutions := make(chan *models.LabelResolution, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(resolutions)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("resolver conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("resolver read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-resolution frames
					continue
				}
				if m.Type != "resolution" {
					continue
				}
				for _, d := range m.Data {
					if !models.IsValidHorizon(models.Horizon(d.Horizon)) {
						continue
					}
					res := &models.LabelResolution{
						Round:   d.Round,
						Horizon: models.Horizon(d.Horizon),
						Label:   d.Label,
						At:      time.UnixMilli(d.At),
					}
					select {
					case resolutions <- res:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return resolutions, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
