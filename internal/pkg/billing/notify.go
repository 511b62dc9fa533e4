package billing

import (
	"context"
	"fmt"

	"github.com/CroftlyHQ/Croftly/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
)

type mailNotifier struct {
	repo SubscriptionRepository
}

// NewMailNotifier creates a notifier that emails the tenant's billing
// contact when their subscription falls past due.
func NewMailNotifier(repo SubscriptionRepository) Notifier {
	return &mailNotifier{repo: repo}
}

func (n *mailNotifier) PastDueNotice(ctx context.Context, tenantID string) {
	tenant, err := n.repo.GetTenant(ctx, tenantID)
	if err != nil {
		log.Warnf("[Billing] past-due notice skipped, tenant %s not resolvable: %v", tenantID, err)
		return
	}

	subject := "Your Croftly payment failed"
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>The latest payment for your Croftly subscription did not go through. "+
			"Your plan keeps working for now, but please update your payment details "+
			"to avoid losing access to your planting calendars and reports.</p>",
		tenant.Name,
	)

	go func() {
		_ = mail.SendMail(tenant.ContactEmail, subject, body)
	}()
}
