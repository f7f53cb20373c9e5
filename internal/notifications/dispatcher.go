package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/wallcraft/storefront-backend/internal/shipment"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

type orderView struct {
	Order    *models.Order
	Shipment *shipment.Created
}

// Dispatcher fans order events out to email and text channels. Delivery
// failures are logged and never returned.
type Dispatcher struct {
	email      EmailSender
	messenger  Messenger
	adminEmail string
	logg       *logger.Logger
}

func NewDispatcher(email EmailSender, messenger Messenger, adminEmail string, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{
		email:      email,
		messenger:  messenger,
		adminEmail: strings.TrimSpace(adminEmail),
		logg:       logg,
	}
}

// OrderCreated notifies the admin, the customer by email and the customer by
// text once a shipment exists for the order.
func (d *Dispatcher) OrderCreated(ctx context.Context, order *models.Order, created *shipment.Created) {
	if order == nil {
		return
	}
	if d.logg != nil {
		ctx = d.logg.WithOrderID(ctx, order.ID.String())
	}
	view := orderView{Order: order, Shipment: created}

	if d.adminEmail != "" {
		body, err := render(adminSummary, view)
		if err != nil {
			d.logError(ctx, "render admin order summary", err)
		} else {
			d.sendEmail(ctx, Email{
				To:      []string{d.adminEmail},
				Subject: fmt.Sprintf("New order %s", order.OrderNumber),
				Text:    body,
			})
		}
	}

	if strings.TrimSpace(order.Email) != "" {
		html, err := render(customerConfirmation, view)
		if err != nil {
			d.logError(ctx, "render customer confirmation", err)
		} else {
			// without the plain part the message goes out HTML-only
			text, err := render(customerConfirmationText, view)
			if err != nil {
				d.logError(ctx, "render customer confirmation text", err)
			}
			d.sendEmail(ctx, Email{
				To:      []string{order.Email},
				Subject: fmt.Sprintf("Order Confirmation - %s", order.OrderNumber),
				Text:    text,
				HTML:    html,
			})
		}
	}

	if strings.TrimSpace(order.Phone) != "" {
		body, err := render(customerSMS, view)
		if err != nil {
			d.logError(ctx, "render customer message", err)
			return
		}
		d.sendText(ctx, order.Phone, body)
	}
}

// TrackingConfirmed tells the customer about a carrier status change, by text
// when a phone number is known and by email otherwise.
func (d *Dispatcher) TrackingConfirmed(ctx context.Context, tracking *shipment.Tracking) {
	if tracking == nil {
		return
	}
	body, err := render(trackingSummary, tracking)
	if err != nil {
		d.logError(ctx, "render tracking summary", err)
		return
	}
	switch {
	case strings.TrimSpace(tracking.Phone) != "":
		d.sendText(ctx, tracking.Phone, body)
	case strings.TrimSpace(tracking.Email) != "":
		d.sendEmail(ctx, Email{
			To:      []string{tracking.Email},
			Subject: fmt.Sprintf("Order %s update", tracking.OrderID),
			Text:    body,
		})
	default:
		if d.logg != nil {
			d.logg.Warn(ctx, "tracking update has no contact details")
		}
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, email Email) {
	if d.email == nil {
		return
	}
	if err := d.email.Send(ctx, email); err != nil {
		d.logError(ctx, "email notification failed", err)
	}
}

func (d *Dispatcher) sendText(ctx context.Context, phone, body string) {
	if d.messenger == nil {
		return
	}
	if err := d.messenger.Send(ctx, phone, body); err != nil {
		d.logError(ctx, "text notification failed", err)
	}
}

func (d *Dispatcher) logError(ctx context.Context, msg string, err error) {
	if d.logg != nil {
		d.logg.Error(ctx, msg, err)
	}
}
