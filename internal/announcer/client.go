// Package announcer posts public achievements to a Mattermost or Slack
// compatible incoming webhook.
package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dakshkumar96/Reclaim/internal/config"
	prommetrics "github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// Message represents a webhook message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Client delivers announcements from a bounded queue on a single worker, so
// callers on the request path never wait for the webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	timeout    time.Duration
	http       *retryablehttp.Client
	log        *logger.Logger

	mu     sync.Mutex
	closed bool
	queue  chan *Message
	done   chan struct{}
}

// NewClient creates a client and starts its delivery worker.
func NewClient(cfg *config.AnnouncerConfig, log *logger.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = nil

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	c := &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		username:   cfg.Username,
		timeout:    timeout,
		http:       httpClient,
		log:        log,
		queue:      make(chan *Message, queueSize),
		done:       make(chan struct{}),
	}
	go c.run()
	return c
}

// Send posts a message and waits for the webhook to accept it.
func (c *Client) Send(ctx context.Context, msg *Message) error {
	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = c.username
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send announcement: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// BadgeEarned announces a newly awarded badge.
func (c *Client) BadgeEarned(username string, badge *models.Badge) {
	text := fmt.Sprintf("%s **%s** earned the **%s** badge!", badgeIcon(badge), username, badge.Name)
	c.enqueue(&Message{
		Text: text,
		Attachments: []Attachment{{
			Fallback: text,
			Color:    "#f5a623",
			Title:    badge.Name,
			Text:     badge.Description,
		}},
	})
}

// LevelUp announces a level increase.
func (c *Client) LevelUp(username string, level int) {
	c.enqueue(&Message{
		Text: fmt.Sprintf(":arrow_up: **%s** reached level **%d**!", username, level),
	})
}

// Close stops accepting announcements and waits for the queue to drain.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	<-c.done
}

func (c *Client) enqueue(msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		prommetrics.RecordAnnouncement("dropped")
		return
	}
	select {
	case c.queue <- msg:
	default:
		prommetrics.RecordAnnouncement("dropped")
		c.log.Warn().Msg("Announcement queue full, dropping message")
	}
}

func (c *Client) run() {
	defer close(c.done)
	for msg := range c.queue {
		if err := c.Send(context.Background(), msg); err != nil {
			prommetrics.RecordAnnouncement("failed")
			c.log.Warn().Err(err).Msg("Failed to deliver announcement")
			continue
		}
		prommetrics.RecordAnnouncement("sent")
		c.log.Debug().Str("channel", msg.Channel).Msg("Delivered announcement")
	}
}

func badgeIcon(badge *models.Badge) string {
	if badge.Icon != "" {
		return badge.Icon
	}
	return ":medal:"
}
