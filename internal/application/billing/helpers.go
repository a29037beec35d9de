package billing

import (
	"errors"
	"fmt"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// itemName builds the display name of an invoice item from its resource
// and plan component.
func itemName(resource *billing.Resource, component billing.PlanComponent) string {
	name := component.ComponentName
	if name == "" {
		name = component.ComponentType
	}
	return fmt.Sprintf("%s (%s / %s)", resource.Name, resource.OfferingName, name)
}

// isNotFound reports whether the error is a missing-row lookup failure
func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

// invoiceFrozen reports whether the locked invoice has left the pending
// state. Items never change after that, so lock callbacks drop late
// events for closed months instead of diverging from the frozen total.
func invoiceFrozen(inv *billing.Invoice, logger *zap.Logger, op string) bool {
	if inv.State == billing.InvoiceStatePending {
		return false
	}
	logger.Warn("dropping "+op+" for non-pending invoice",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("state", inv.State.String()))
	return true
}
