package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client delivers notification payloads to an external push gateway over a
// webhook. The gateway resolves recipient keys to device tokens; this side
// only posts.
type Client struct {
	webhookURL string
	authToken  string
	httpClient *http.Client
}

type Message struct {
	RecipientKey string `json:"recipient_key"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

func NewClient(webhookURL, authToken string) *Client {
	return &Client{
		webhookURL: webhookURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Send(recipientKey, title, body string) error {
	if c.webhookURL == "" {
		return nil // push delivery not configured
	}

	payload, err := json.Marshal(Message{
		RecipientKey: recipientKey,
		Title:        title,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("push gateway error: %s", resp.Status)
	}

	return nil
}
