// Package services – RecipientResolver
//
// RecipientResolver walks the case graph from a due item to the people who
// must be notified and turns each person into channel targets:
//
//	hearing -> linked cases -> employees ∪ customers -> usernames
//	task    -> assigned employee                      -> username
//	username -> verified email (Email) and phone (SMS + WhatsApp)
//
// An item with no links, no assignee, or no contact details resolves to an
// empty set; that is not an error. Store errors propagate unchanged.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

// RecipientResolver resolves due items to targets.
type RecipientResolver struct {
	Relations RelationSource
	Identity  IdentitySource
}

// Resolve returns the distinct targets for item: all Email targets first,
// then an SMS and a WhatsApp target per phone number, each group in the
// order the usernames were discovered.
func (r *RecipientResolver) Resolve(ctx context.Context, item domain.DueItem) ([]domain.RecipientTarget, error) {
	ctx, span := otel.Tracer("services/RecipientResolver").Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("category", string(item.Category())),
			attribute.Int64("item.id", item.ItemID()),
		),
	)
	defer span.End()

	var (
		usernames []string
		err       error
	)
	switch it := item.(type) {
	case domain.HearingReminder:
		usernames, err = r.hearingUsernames(ctx, it.HearingID)
	case *domain.HearingReminder:
		usernames, err = r.hearingUsernames(ctx, it.HearingID)
	case domain.TaskReminder:
		usernames, err = r.taskUsernames(ctx, it.EmployeeID)
	case *domain.TaskReminder:
		usernames, err = r.taskUsernames(ctx, it.EmployeeID)
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedItem, item)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	targets, err := r.targetsFor(ctx, usernames)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("targets", len(targets)))
	return targets, nil
}

func (r *RecipientResolver) hearingUsernames(ctx context.Context, hearingID int64) ([]string, error) {
	caseIDs, err := r.Relations.CaseIDsForHearing(ctx, hearingID)
	if err != nil {
		return nil, fmt.Errorf("cases for hearing %d: %w", hearingID, err)
	}
	var set orderedSet
	for _, id := range caseIDs {
		emps, err := r.Relations.CaseEmployeeUsernames(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("employees for case %d: %w", id, err)
		}
		custs, err := r.Relations.CaseCustomerUsernames(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("customers for case %d: %w", id, err)
		}
		set.add(emps...)
		set.add(custs...)
	}
	return set.items, nil
}

func (r *RecipientResolver) taskUsernames(ctx context.Context, employeeID *int64) ([]string, error) {
	if employeeID == nil {
		return nil, nil
	}
	name, err := r.Relations.EmployeeUsername(ctx, *employeeID)
	if err != nil {
		return nil, fmt.Errorf("employee %d: %w", *employeeID, err)
	}
	if name == "" {
		return nil, nil
	}
	return []string{name}, nil
}

func (r *RecipientResolver) targetsFor(ctx context.Context, usernames []string) ([]domain.RecipientTarget, error) {
	var emails, phones orderedSet
	for _, u := range usernames {
		email, err := r.Identity.VerifiedEmail(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("email for %q: %w", u, err)
		}
		emails.add(email)

		phone, err := r.Relations.PhoneNumber(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("phone for %q: %w", u, err)
		}
		phones.add(phone)
	}

	out := make([]domain.RecipientTarget, 0, len(emails.items)+2*len(phones.items))
	for _, e := range emails.items {
		out = append(out, domain.EmailTarget(e))
	}
	for _, p := range phones.items {
		out = append(out, domain.SMSTarget(p), domain.WhatsAppTarget(p))
	}
	return out, nil
}

// orderedSet keeps the first occurrence of each non-blank string.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *orderedSet) add(vals ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}

var _ Resolver = (*RecipientResolver)(nil)
