package service

import (
	"context"
	"errors"
	"strings"

	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	"github.com/andreymarc/magnex-billing/internal/config"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Profiles profiledomain.Repository
	Client   checkoutdomain.ProviderClient
}

type Service struct {
	log      *zap.Logger
	siteURL  string
	profiles profiledomain.Repository
	client   checkoutdomain.ProviderClient
}

func NewService(p Params) checkoutdomain.Service {
	return &Service{
		log:      p.Log.Named("checkout.service"),
		siteURL:  strings.TrimRight(p.Cfg.SiteURL, "/"),
		profiles: p.Profiles,
		client:   p.Client,
	}
}

func (s *Service) CreatePortalSession(ctx context.Context, req checkoutdomain.PortalRequest) (string, error) {
	if err := s.authorizeCustomer(ctx, req.UserID, req.CustomerID); err != nil {
		return "", err
	}

	url, err := s.client.NewPortalSession(ctx, req.CustomerID, s.siteURL+"/settings/billing")
	if err != nil {
		return "", err
	}
	s.log.Info("portal session issued", zap.String("user_id", req.UserID))
	return url, nil
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req checkoutdomain.CheckoutRequest) (string, error) {
	if strings.TrimSpace(req.PriceID) == "" {
		return "", checkoutdomain.ErrInvalidRequest
	}
	cycle := req.BillingCycle
	if cycle != profiledomain.BillingCycleAnnual {
		cycle = profiledomain.BillingCycleMonthly
	}

	if err := s.authorizeCustomer(ctx, req.UserID, req.CustomerID); err != nil {
		return "", err
	}

	url, err := s.client.NewCheckoutSession(ctx, checkoutdomain.SessionParams{
		CustomerID:   req.CustomerID,
		PriceID:      req.PriceID,
		UserID:       req.UserID,
		BillingCycle: string(cycle),
		SuccessURL:   s.siteURL + "/settings/billing?checkout=success",
		CancelURL:    s.siteURL + "/settings/billing?checkout=canceled",
	})
	if err != nil {
		return "", err
	}
	s.log.Info("checkout session issued",
		zap.String("user_id", req.UserID),
		zap.String("price_id", req.PriceID),
	)
	return url, nil
}

// authorizeCustomer requires the stored billing-customer id on the user's
// profile to match the claimed id exactly. This blocks session issuance
// against another tenant's billing customer.
func (s *Service) authorizeCustomer(ctx context.Context, userID, customerID string) error {
	userID = strings.TrimSpace(userID)
	customerID = strings.TrimSpace(customerID)
	if userID == "" || customerID == "" {
		return checkoutdomain.ErrInvalidRequest
	}

	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, profiledomain.ErrProfileNotFound) {
			return checkoutdomain.ErrNotCustomerOwner
		}
		return err
	}
	if profile.StripeCustomerID == nil || *profile.StripeCustomerID != customerID {
		s.log.Warn("customer ownership mismatch",
			zap.String("user_id", userID),
			zap.String("claimed_customer_id", customerID),
		)
		return checkoutdomain.ErrNotCustomerOwner
	}
	return nil
}
