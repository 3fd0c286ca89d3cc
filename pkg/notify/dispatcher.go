package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/metrics"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
)

var (
	ErrNotification = errors.New("notification failure")
	ErrRateLimited  = errors.New("contact notified too often")
)

const DefaultMaxRecipients = 3

// Sender delivers one notification to one contact.
type Sender interface {
	Send(ctx context.Context, contact models.Contact, n models.Notification) error
}

type Dispatcher struct {
	sender        Sender
	userName      string
	maxRecipients int
	limiter       *safety.RateLimiterStore
}

type DispatcherOpts struct {
	UserName      string
	MaxRecipients int
	// Limiter, when set, caps how often one phone number is messaged.
	Limiter *safety.RateLimiterStore
}

func NewDispatcher(sender Sender, opts DispatcherOpts) *Dispatcher {
	if opts.MaxRecipients <= 0 {
		opts.MaxRecipients = DefaultMaxRecipients
	}
	return &Dispatcher{
		sender:        sender,
		userName:      opts.UserName,
		maxRecipients: opts.MaxRecipients,
		limiter:       opts.Limiter,
	}
}

// SelectRecipients returns only the primary contacts when there are any,
// otherwise the first max contacts in the given order. Emergency service
// numbers never receive the automated SMS.
func SelectRecipients(contacts []models.Contact, max int) []models.Contact {
	contacts = common.Filter(contacts, func(c models.Contact) bool { return !c.IsEmergencyService })
	primaries := common.Filter(contacts, func(c models.Contact) bool { return c.IsPrimary })
	if len(primaries) > 0 {
		return primaries
	}
	if len(contacts) > max {
		return contacts[:max]
	}
	return contacts
}

// NotifyAll sends the alert to the selected contacts concurrently. Each
// delivery is independent; the outcomes follow the selection order.
func (d *Dispatcher) NotifyAll(ctx context.Context, contacts []models.Contact, loc models.LocationSnapshot) []models.DeliveryOutcome {
	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosNotify)

	recipients := SelectRecipients(contacts, d.maxRecipients)
	outcomes := make([]models.DeliveryOutcome, len(recipients))
	notification := AlertNotification(d.userName, loc)

	var wg sync.WaitGroup
	for i, contact := range recipients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := models.DeliveryOutcome{ContactID: contact.ID, PhoneNumber: contact.PhoneNumber}
			if err := d.deliver(ctx, contact, notification); err != nil {
				outcome.Error = err.Error()
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				logger.Warn("Failed to notify contact",
					zap.Uint("contact_id", contact.ID),
					zap.String("phone_number", contact.PhoneNumber),
					zap.Error(err))
			} else {
				outcome.Delivered = true
				metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
			}
			outcomes[i] = outcome
		}()
	}
	wg.Wait()

	logger.Info("Contacts notified",
		zap.Int("selected", len(recipients)),
		zap.Int("delivered", len(Delivered(outcomes))))
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, contact models.Contact, n models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: sender panicked: %v", ErrNotification, r)
		}
	}()

	if d.limiter != nil && !d.limiter.Allow(contact.PhoneNumber) {
		return fmt.Errorf("%w: %w", ErrNotification, ErrRateLimited)
	}
	if err := d.sender.Send(ctx, contact, n); err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}
	return nil
}

// Delivered lists the ids of contacts that were reached.
func Delivered(outcomes []models.DeliveryOutcome) []uint {
	ids := []uint{}
	for _, o := range outcomes {
		if o.Delivered {
			ids = append(ids, o.ContactID)
		}
	}
	return ids
}
