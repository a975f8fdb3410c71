package alerts

import (
	"fmt"
	"log"

	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/mail"
)

// SendFunc delivers one notification; swappable in tests.
type SendFunc func(to, subject, body string) error

// Notifier emails open, unsent alerts to the tenant contact and marks
// them sent. Actual transport is the platform SMTP relay.
type Notifier struct {
	tenants repository.TenantRepository
	alerts  repository.AlertRepository
	send    SendFunc
}

// NewNotifier creates an alert notifier using the SMTP mailer.
func NewNotifier(tenants repository.TenantRepository, alertRepo repository.AlertRepository) *Notifier {
	return &Notifier{tenants: tenants, alerts: alertRepo, send: mail.SendMail}
}

// NotifyPending sends every unsent open alert and marks it sent.
// Per-alert failures are logged and skipped so one bad address does not
// block the rest of the batch.
func (n *Notifier) NotifyPending(batchSize int) (int, error) {
	pending, err := n.alerts.ListUnsent(batchSize)
	if err != nil {
		return 0, fmt.Errorf("notify: list unsent: %w", err)
	}

	sent := 0
	for _, alert := range pending {
		tenant, err := n.tenants.GetByID(alert.TenantID)
		if err != nil {
			log.Printf("notify: tenant %d for alert %d: %v", alert.TenantID, alert.ID, err)
			continue
		}

		subject := fmt.Sprintf("[CafeCloud] %s usage %s for %s", alert.Resource, alert.Level, tenant.BusinessName)
		body := fmt.Sprintf("<p>Hello %s,</p><p>%s</p><p>Please review your usage in the dashboard.</p>",
			tenant.ContactName, alert.Message)
		if err := n.send(tenant.ContactEmail, subject, body); err != nil {
			log.Printf("notify: send alert %d to %s: %v", alert.ID, tenant.ContactEmail, err)
			continue
		}

		if err := n.alerts.MarkSent(alert.ID); err != nil {
			return sent, fmt.Errorf("notify: mark sent %d: %w", alert.ID, err)
		}
		sent++
	}
	return sent, nil
}
