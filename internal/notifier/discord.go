package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/maodevaca/internal/metrics"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/util"
)

const (
	colorPending  = 3447003  // #3498DB
	colorReported = 15158332 // #E74C3C
	colorWarm     = 16753920 // #FFA500
	colorHot      = 16711680 // #FF0000

	maxRetries     = 3
	baseBackoff    = 500 * time.Millisecond
	maxRetryAfter  = 5 * time.Second
	descriptionCap = 300
	kindPending    = "pending"
	kindReported   = "reported"
)

// Client posts moderator alerts to a Discord webhook.
type Client struct {
	webhookURL  string
	adminURL    string
	client      *http.Client
	rateLimiter *rate.Limiter
	backoff     time.Duration
}

// New returns a notifier. An empty webhookURL makes every call a no-op.
// adminURL is linked from each alert so moderators can open the queue.
func New(webhookURL, adminURL string) *Client {
	// Discord allows roughly 30 webhook messages per minute per channel.
	return &Client{
		webhookURL:  webhookURL,
		adminURL:    adminURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		backoff:     baseBackoff,
	}
}

// NotifyPending announces a freshly submitted deal waiting for approval.
func (c *Client) NotifyPending(ctx context.Context, deal models.Deal) error {
	return c.send(ctx, kindPending, formatPending(deal, c.adminURL))
}

// NotifyReported announces a deal a user flagged as expired.
func (c *Client) NotifyReported(ctx context.Context, deal models.Deal) error {
	return c.send(ctx, kindReported, formatReported(deal, c.adminURL))
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	URL         string                `json:"url,omitempty"`
	Timestamp   string                `json:"timestamp,omitempty"`
	Color       int                   `json:"color,omitempty"`
	Thumbnail   discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField   `json:"fields,omitempty"`
	Footer      discordEmbedFooter    `json:"footer,omitempty"`
}

func formatPending(deal models.Deal, adminURL string) discordEmbed {
	embed := baseEmbed(deal, adminURL)
	embed.Title = "Nova promoção aguardando aprovação: " + deal.Title
	embed.Color = colorPending
	return embed
}

func formatReported(deal models.Deal, adminURL string) discordEmbed {
	embed := baseEmbed(deal, adminURL)
	embed.Title = "Promoção reportada como expirada: " + deal.Title
	embed.Color = heatColor(deal.Temperature, colorReported)
	return embed
}

func baseEmbed(deal models.Deal, adminURL string) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Preço", Value: formatPrice(deal), Inline: true},
		{Name: "Loja", Value: deal.StoreName, Inline: true},
		{Name: "Categoria", Value: deal.Category, Inline: true},
		{Name: "Temperatura", Value: fmt.Sprintf("%d°", deal.Temperature), Inline: true},
	}
	if deal.CouponCode != "" {
		fields = append(fields, discordEmbedField{Name: "Cupom", Value: deal.CouponCode, Inline: true})
	}

	var description string
	if deal.Link != "" {
		description = fmt.Sprintf("[Link da oferta](%s)", deal.Link)
	}
	if deal.Description != "" {
		text := deal.Description
		if len([]rune(text)) > descriptionCap {
			text = string([]rune(text)[:descriptionCap]) + "…"
		}
		description = text + "\n\n" + description
	}

	var ts string
	if !deal.CreatedAt.IsZero() {
		ts = deal.CreatedAt.Format(time.RFC3339)
	}

	return discordEmbed{
		URL:         adminURL,
		Description: description,
		Timestamp:   ts,
		Thumbnail:   discordEmbedThumbnail{URL: deal.ImageURL},
		Fields:      fields,
		Footer:      discordEmbedFooter{Text: fmt.Sprintf("Promoção #%d", deal.ID)},
	}
}

func formatPrice(deal models.Deal) string {
	price := fmt.Sprintf("R$ %.2f", deal.Price)
	if pct := deal.DiscountPercent(); pct > 0 {
		price += fmt.Sprintf(" (-%d%%)", pct)
	}
	return price
}

// heatColor keeps the base colour for cold deals and switches to the heat
// palette once the community has warmed a deal up.
func heatColor(temperature, base int) int {
	switch {
	case models.IsHotTemperature(temperature):
		return colorHot
	case temperature >= models.HotThreshold/2:
		return colorWarm
	}
	return base
}

func (c *Client) send(ctx context.Context, kind string, embed discordEmbed) error {
	if c.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return err
	}

	err = util.RetryWithBackoff(ctx, maxRetries, c.backoff, func(attempt int) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		return c.post(ctx, body, attempt)
	})
	metrics.NotificationsTotal.WithLabelValues(kind, metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("discord %s notification: %w", kind, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte, attempt int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return util.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	statusErr := fmt.Errorf("discord status: %s, body: %s", resp.Status, string(respBody))

	wait := retryAfter(resp)
	if wait < 0 {
		return util.Permanent(statusErr)
	}
	if wait > 0 {
		slog.Warn("Discord rate limited webhook", "attempt", attempt, "retry_after", wait)
		select {
		case <-ctx.Done():
			return util.Permanent(ctx.Err())
		case <-time.After(wait):
		}
	}
	return statusErr
}

// retryAfter classifies a failed response: negative means do not retry, zero
// means retry on the normal backoff, positive is an extra server-requested wait.
func retryAfter(resp *http.Response) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			d := time.Duration(secs * float64(time.Second))
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
		return 0
	case resp.StatusCode >= 500:
		return 0
	}
	return -1
}
