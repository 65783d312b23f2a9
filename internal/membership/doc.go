// Package membership sells memberships through Stripe Checkout and keeps a
// "members" object per customer in Cosmic in step with Stripe webhooks.
//
// Handled events:
//
//	checkout.session.completed     create or update the member as active
//	customer.subscription.updated  copy the subscription status
//	customer.subscription.deleted  mark the member canceled
//	invoice.payment_failed         mark the member past_due
//
// Other event types are acknowledged and ignored. Deliveries with a bad
// signature fail with services.ErrUnauthorized.
package membership
