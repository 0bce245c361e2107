package stripeclient

import (
	"context"
	"fmt"

	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	"github.com/andreymarc/magnex-billing/internal/config"
	"github.com/andreymarc/magnex-billing/internal/observability/tracing"
	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// Client issues Stripe billing-portal and checkout sessions.
type Client struct{}

// New configures the global Stripe client and returns the session client.
func New(cfg config.Config) *Client {
	stripe.Key = cfg.StripeSecretKey
	stripe.SetHTTPClient(tracing.WrapHTTPClient(nil))
	return &Client{}
}

func (c *Client) NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", checkoutdomain.ErrProviderFailure, err)
	}
	return session.URL, nil
}

func (c *Client) NewCheckoutSession(ctx context.Context, req checkoutdomain.SessionParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(req.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id":       req.UserID,
				"billing_cycle": req.BillingCycle,
			},
		},
	}
	params.Context = ctx

	session, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", checkoutdomain.ErrProviderFailure, err)
	}
	return session.URL, nil
}
