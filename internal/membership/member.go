package membership

import (
	"context"
	"time"

	"wwfm/internal/services/cosmic"
	"wwfm/internal/textutil"
)

// TypeMembers is the Cosmic object type holding member records.
const TypeMembers = "members"

// Member statuses.
const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Member is a paying supporter.
type Member struct {
	ID             string
	Email          string
	CustomerID     string
	SubscriptionID string
	Status         string
	UpdatedAt      time.Time
}

// Store is the subset of the Cosmic client used for member records.
type Store interface {
	Objects(ctx context.Context, q cosmic.Query) (cosmic.ObjectList, error)
	InsertObject(ctx context.Context, obj cosmic.NewObject) (cosmic.Object, error)
	EditObject(ctx context.Context, id string, patch cosmic.Patch) (cosmic.Object, error)
}

func memberFromObject(obj cosmic.Object) (Member, error) {
	var meta struct {
		Email          string `json:"email"`
		CustomerID     string `json:"stripe_customer_id"`
		SubscriptionID string `json:"stripe_subscription_id"`
		Status         string `json:"status"`
		UpdatedAt      string `json:"updated_at"`
	}
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Member{}, err
	}
	updated, _ := time.Parse(time.RFC3339, meta.UpdatedAt)
	return Member{
		ID:             obj.ID,
		Email:          meta.Email,
		CustomerID:     meta.CustomerID,
		SubscriptionID: meta.SubscriptionID,
		Status:         meta.Status,
		UpdatedAt:      updated,
	}, nil
}

func (m Member) metadata() map[string]any {
	meta := map[string]any{
		"status":     m.Status,
		"updated_at": m.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if m.Email != "" {
		meta["email"] = m.Email
	}
	if m.CustomerID != "" {
		meta["stripe_customer_id"] = m.CustomerID
	}
	if m.SubscriptionID != "" {
		meta["stripe_subscription_id"] = m.SubscriptionID
	}
	return meta
}

// findMember looks a member up by metadata field. ok is false when none exists.
func findMember(ctx context.Context, store Store, field, value string) (Member, bool, error) {
	if value == "" {
		return Member{}, false, nil
	}
	list, err := store.Objects(ctx, cosmic.Query{
		Type:   TypeMembers,
		Filter: map[string]any{"metadata." + field: value},
		Limit:  1,
	})
	if err != nil {
		return Member{}, false, err
	}
	if len(list.Objects) == 0 {
		return Member{}, false, nil
	}
	m, err := memberFromObject(list.Objects[0])
	if err != nil {
		return Member{}, false, err
	}
	return m, true, nil
}

// saveMember writes m, inserting it when it has no ID.
func saveMember(ctx context.Context, store Store, m Member) (Member, error) {
	if m.ID != "" {
		obj, err := store.EditObject(ctx, m.ID, cosmic.Patch{Metadata: m.metadata()})
		if err != nil {
			return Member{}, err
		}
		m.ID = obj.ID
		return m, nil
	}
	title := m.Email
	if title == "" {
		title = m.CustomerID
	}
	obj, err := store.InsertObject(ctx, cosmic.NewObject{
		Type:     TypeMembers,
		Title:    title,
		Slug:     textutil.Slugify(title),
		Status:   "published",
		Metadata: m.metadata(),
	})
	if err != nil {
		return Member{}, err
	}
	m.ID = obj.ID
	return m, nil
}

// statusFromSubscription maps a Stripe subscription status onto a member status.
func statusFromSubscription(status string) string {
	switch status {
	case "active", "trialing":
		return StatusActive
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled", "incomplete_expired":
		return StatusCanceled
	default:
		return status
	}
}
