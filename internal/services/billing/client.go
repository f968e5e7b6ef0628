// Package billing talks to the payment provider and verifies its webhook
// signatures.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
)

// Client is a minimal payment-provider API client. The back office only ever
// cancels subscriptions; everything else is provider-hosted.
type Client struct {
	apiKey  string
	baseURL string
	http    *fasthttp.Client
	logger  *zap.Logger
}

func NewClient(apiKey, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &fasthttp.Client{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// CancelSubscription stops recurring billing for the subscription.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return domain.NewError(domain.ErrCodeInvalid, "missing subscription id")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/v1/subscriptions/%s", c.baseURL, subscriptionID))
	req.Header.SetMethod(fasthttp.MethodDelete)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("cancel subscription %s: provider returned %d", subscriptionID, resp.StatusCode())
	}

	c.logger.Info("subscription canceled", zap.String("subscription_id", subscriptionID))
	return nil
}
