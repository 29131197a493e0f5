package kitchen

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Prep time estimate: a base per ticket plus a few minutes per box.
const (
	prepBase    = 5 * time.Minute
	prepPerUnit = 2 * time.Minute
)

// PrepEstimate returns how long the kitchen needs for units boxes.
func PrepEstimate(units int) time.Duration {
	if units <= 0 {
		return 0
	}
	return prepBase + time.Duration(units)*prepPerUnit
}

// TicketResult is what KitchenTicketWorkflow returns.
type TicketResult struct {
	TicketID string        `json:"ticket_id"`
	Status   string        `json:"status"` // ready | voided
	Prep     time.Duration `json:"prep"`
}

// Activities run on the kitchen worker.
type Activities struct{}

// AcceptTicket acknowledges a ticket and returns the prep estimate.
func (a *Activities) AcceptTicket(ctx context.Context, t Ticket) (time.Duration, error) {
	estimate := PrepEstimate(t.Units)
	activity.GetLogger(ctx).Info("Ticket accepted", "ticket_id", t.ID, "order_id", t.OrderID, "units", t.Units, "estimate", estimate)
	return estimate, nil
}

// PrepareTicket marks the ticket ready for pickup.
func (a *Activities) PrepareTicket(ctx context.Context, t Ticket) error {
	activity.GetLogger(ctx).Info("Ticket ready", "ticket_id", t.ID, "order_id", t.OrderID, "pickup_time", t.PickupTime)
	return nil
}

// VoidTicket withdraws the kitchen work for a cancelled order.
func (a *Activities) VoidTicket(ctx context.Context, t Ticket) error {
	activity.GetLogger(ctx).Info("Ticket voided", "ticket_id", t.ID, "order_id", t.OrderID)
	return nil
}

// KitchenTicketWorkflow accepts, times and readies placed or changed orders,
// and voids cancelled ones.
func KitchenTicketWorkflow(ctx workflow.Context, t Ticket) (TicketResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})

	var a *Activities
	if t.Event == "cancelled" {
		if err := workflow.ExecuteActivity(ctx, a.VoidTicket, t).Get(ctx, nil); err != nil {
			return TicketResult{}, err
		}
		return TicketResult{TicketID: t.ID, Status: "voided"}, nil
	}

	var estimate time.Duration
	if err := workflow.ExecuteActivity(ctx, a.AcceptTicket, t).Get(ctx, &estimate); err != nil {
		return TicketResult{}, err
	}
	logger.Info("Preparing ticket", "ticket_id", t.ID, "estimate", estimate)
	if err := workflow.Sleep(ctx, estimate); err != nil {
		return TicketResult{}, err
	}
	if err := workflow.ExecuteActivity(ctx, a.PrepareTicket, t).Get(ctx, nil); err != nil {
		return TicketResult{}, err
	}
	return TicketResult{TicketID: t.ID, Status: "ready", Prep: estimate}, nil
}
