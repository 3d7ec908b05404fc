package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/pkg/errors"

	"github.com/donatale/donatale/internal/domain"
	"github.com/donatale/donatale/internal/usecase"
)

const defaultMailerURL = "https://api.forwardemail.net"

type MailerOptions struct {
	BaseURL       string
	APIKey        string
	SenderAddress string
	Timeout       time.Duration
	Retries       int
	// Doer replaces the underlying http client, mostly for tests.
	Doer heimdall.Doer
}

// MailerGateway sends transactional emails through the Forward Email API.
type MailerGateway struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	sender  string
}

func NewMailerGateway(opts MailerOptions) *MailerGateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultMailerURL
	}

	clientOpts := []httpclient.Option{
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(opts.Retries),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond))),
	}
	if opts.Doer != nil {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(opts.Doer))
	}

	return &MailerGateway{
		client:  httpclient.NewClient(clientOpts...),
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		sender:  opts.SenderAddress,
	}
}

// SenderFromSite derives the no-reply sender for a site url such as https://example.org.
func SenderFromSite(siteURL string) string {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "no-reply@" + host
}

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (g *MailerGateway) Send(ctx context.Context, email domain.Email) error {
	from := (&mail.Address{Name: email.FromName, Address: g.sender}).String()
	payload, err := json.Marshal(emailPayload{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/emails", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.SetBasicAuth(g.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send email")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var _ usecase.Mailer = (*MailerGateway)(nil)
