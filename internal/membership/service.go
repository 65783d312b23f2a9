package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"wwfm/internal/logging"
	"wwfm/internal/services"
)

// CheckoutCreator creates Stripe Checkout Sessions.
type CheckoutCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewCheckoutClient returns a Checkout Session client bound to secretKey.
func NewCheckoutClient(secretKey string) CheckoutCreator {
	return &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// Config holds the Stripe settings the service needs. SuccessURL and
// CancelURL must be absolute.
type Config struct {
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string
}

// Service runs checkout and webhook handling.
type Service struct {
	cfg      Config
	store    Store
	checkout CheckoutCreator
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a membership service. checkout may be nil when only
// webhooks are handled.
func NewService(cfg Config, store Store, checkout CheckoutCreator, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		checkout: checkout,
		logger:   logging.NewComponentLogger(logger, "membership"),
		now:      time.Now,
	}
}

// Checkout starts a subscription checkout for email and returns the hosted
// payment page URL.
func (s *Service) Checkout(ctx context.Context, email string) (string, error) {
	if s.checkout == nil || s.cfg.PriceID == "" {
		return "", services.Wrap(services.ErrConfiguration, "membership", "checkout", "stripe not configured", nil)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "membership", "checkout", "invalid email address", err)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(addr.Address),
		SuccessURL:    stripe.String(s.cfg.SuccessURL),
		CancelURL:     stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(s.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	sess, err := s.checkout.New(params)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "membership", "checkout", "create session", err)
	}
	if sess == nil || sess.URL == "" {
		return "", services.Wrap(services.ErrUpstream, "membership", "checkout", "session has no url", nil)
	}
	logging.WithContext(ctx, s.logger).Info("checkout session created", logging.String("session_id", sess.ID))
	return sess.URL, nil
}

// Result describes a processed webhook delivery.
type Result struct {
	EventID string
	Type    string
	Handled bool
	Member  *Member
}

// HandleWebhook verifies and applies a Stripe webhook delivery.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error) {
	if s.cfg.WebhookSecret == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "membership", "webhook", "webhook secret not configured", nil)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrUnauthorized, "membership", "webhook", "verify signature", err)
	}

	result := Result{EventID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return result, nil
	}
	logger := logging.WithContext(ctx, s.logger).With(
		logging.String("stripe_event", result.EventID),
		logging.String(logging.FieldEventType, result.Type),
	)

	var member *Member
	switch result.Type {
	case "checkout.session.completed":
		member, err = s.checkoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.updated", "customer.subscription.deleted":
		member, err = s.subscriptionChanged(ctx, event.Data.Raw, result.Type == "customer.subscription.deleted")
	case "invoice.payment_failed":
		member, err = s.paymentFailed(ctx, event.Data.Raw)
	default:
		logger.Debug("ignoring stripe event")
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("membership %s: %w", result.Type, err)
	}
	result.Handled = true
	result.Member = member
	if member == nil {
		logging.WarnWithContext(logger, "no member record for stripe event", "member_not_found",
			logging.String(logging.FieldErrorHint, "check the customer exists in Cosmic members"),
			logging.String(logging.FieldImpact, "member status not updated"),
			logging.Alert("billing"),
		)
		return result, nil
	}
	logger.Info("member updated",
		logging.String("member_id", member.ID),
		logging.String("status", member.Status),
	)
	return result, nil
}

func (s *Service) checkoutCompleted(ctx context.Context, raw json.RawMessage) (*Member, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, services.Wrap(services.ErrValidation, "membership", "checkout completed", "decode session", err)
	}
	email := sess.CustomerEmail
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		email = sess.CustomerDetails.Email
	}
	email = strings.ToLower(strings.TrimSpace(email))
	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}

	member, found, err := findMember(ctx, s.store, "stripe_customer_id", customerID)
	if err != nil {
		return nil, err
	}
	if !found {
		if member, found, err = findMember(ctx, s.store, "email", email); err != nil {
			return nil, err
		}
	}
	if !found && email == "" && customerID == "" {
		return nil, services.Wrap(services.ErrValidation, "membership", "checkout completed", "session has no customer", nil)
	}
	if email != "" {
		member.Email = email
	}
	if customerID != "" {
		member.CustomerID = customerID
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		member.SubscriptionID = sess.Subscription.ID
	}
	member.Status = StatusActive
	member.UpdatedAt = s.now()
	saved, err := saveMember(ctx, s.store, member)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Service) subscriptionChanged(ctx context.Context, raw json.RawMessage, deleted bool) (*Member, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, services.Wrap(services.ErrValidation, "membership", "subscription", "decode subscription", err)
	}
	if sub.Customer == nil {
		return nil, nil
	}
	status := statusFromSubscription(string(sub.Status))
	if deleted {
		status = StatusCanceled
	}
	return s.updateStatus(ctx, sub.Customer.ID, sub.ID, status)
}

func (s *Service) paymentFailed(ctx context.Context, raw json.RawMessage) (*Member, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, services.Wrap(services.ErrValidation, "membership", "invoice", "decode invoice", err)
	}
	if inv.Customer == nil {
		return nil, nil
	}
	return s.updateStatus(ctx, inv.Customer.ID, "", StatusPastDue)
}

func (s *Service) updateStatus(ctx context.Context, customerID, subscriptionID, status string) (*Member, error) {
	member, found, err := findMember(ctx, s.store, "stripe_customer_id", customerID)
	if err != nil || !found {
		return nil, err
	}
	member.Status = status
	if subscriptionID != "" {
		member.SubscriptionID = subscriptionID
	}
	member.UpdatedAt = s.now()
	saved, err := saveMember(ctx, s.store, member)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
