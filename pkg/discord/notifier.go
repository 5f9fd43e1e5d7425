package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	deliveryTimeout = 10 * time.Second
	maxErrorBody    = 512
)

var ErrWebhookNotConfigured = errors.New("discord webhook url is not configured")

// TransportError means the webhook could not be reached or the payload could
// not be sent.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webhook delivery failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EndpointRejectedError means the webhook answered with a non-2xx status.
type EndpointRejectedError struct {
	StatusCode int
	Reason     string
	// Body is a truncated copy of the response body, for logs only.
	Body string
}

func (e *EndpointRejectedError) Error() string {
	return fmt.Sprintf("webhook rejected delivery: %d %s", e.StatusCode, e.Reason)
}

type Notifier struct {
	webhookUrl string
	client     *http.Client
}

func NewNotifier(webhookUrl string) *Notifier {
	return &Notifier{
		webhookUrl: webhookUrl,
		client:     &http.Client{Timeout: deliveryTimeout},
	}
}

// Deliver posts the payload once. Retrying is left to the caller.
func (n *Notifier) Deliver(ctx context.Context, payload Payload) error {
	if n.webhookUrl == "" {
		return &TransportError{Err: ErrWebhookNotConfigured}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("unable to encode payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookUrl, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: fmt.Errorf("unable to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rejected := &EndpointRejectedError{
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Body:       string(respBody),
		}
		log.Warnf("%v: %s", rejected, rejected.Body)
		return rejected
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	log.Debugf("Webhook accepted delivery with status %d", resp.StatusCode)
	return nil
}

// reasonPhrase returns the status text sent by the endpoint, falling back to
// the standard one.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}
