package kitchen

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/itsneelabh/sushichat/core"
)

// TemporalNotifier starts one KitchenTicketWorkflow per ticket.
type TemporalNotifier struct {
	client    client.Client
	taskQueue string
	logger    core.Logger
}

// DialTemporal connects to the Temporal frontend in cfg.
func DialTemporal(cfg core.TemporalConfig, logger core.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    NewTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return c, nil
}

// NewTemporalNotifier wraps an existing Temporal client.
func NewTemporalNotifier(c client.Client, taskQueue string, logger core.Logger) *TemporalNotifier {
	return &TemporalNotifier{client: c, taskQueue: taskQueue, logger: core.ComponentLogger(logger, "kitchen")}
}

func (n *TemporalNotifier) Notify(ctx context.Context, t Ticket) error {
	run, err := n.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "kitchen-" + t.ID,
		TaskQueue: n.taskQueue,
	}, KitchenTicketWorkflow, t)
	if err != nil {
		return fmt.Errorf("start kitchen workflow for %s: %w", t.ID, err)
	}
	n.logger.InfoWithContext(ctx, "Kitchen workflow started", map[string]interface{}{
		"operation":   "kitchen_notify",
		"ticket_id":   t.ID,
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
	return nil
}

// Close closes the Temporal client.
func (n *TemporalNotifier) Close(ctx context.Context) error {
	n.client.Close()
	return nil
}

// NewWorker registers the kitchen workflow and activities on taskQueue.
func NewWorker(c client.Client, taskQueue string) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(KitchenTicketWorkflow)
	w.RegisterActivity(&Activities{})
	return w
}

// temporalLogger adapts core.Logger to the Temporal SDK logger.
type temporalLogger struct {
	logger core.Logger
}

// NewTemporalLogger returns a Temporal logger writing through logger.
func NewTemporalLogger(logger core.Logger) tlog.Logger {
	return &temporalLogger{logger: core.ComponentLogger(logger, "temporal")}
}

func fields(keyvals []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		out[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}
	if len(keyvals)%2 == 1 {
		out["extra"] = keyvals[len(keyvals)-1]
	}
	return out
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) { l.logger.Debug(msg, fields(keyvals)) }
func (l *temporalLogger) Info(msg string, keyvals ...interface{})  { l.logger.Info(msg, fields(keyvals)) }
func (l *temporalLogger) Warn(msg string, keyvals ...interface{})  { l.logger.Warn(msg, fields(keyvals)) }
func (l *temporalLogger) Error(msg string, keyvals ...interface{}) { l.logger.Error(msg, fields(keyvals)) }
