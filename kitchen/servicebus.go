package kitchen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/itsneelabh/sushichat/core"
)

type serviceBusSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// ServiceBusNotifier sends tickets to an Azure Service Bus queue.
type ServiceBusNotifier struct {
	client *azservicebus.Client
	sender serviceBusSender
	queue  string
	logger core.Logger
}

// NewServiceBusNotifier connects with the connection string when set,
// otherwise with the namespace host and the default Azure credential.
func NewServiceBusNotifier(cfg core.ServiceBusConfig, logger core.Logger) (*ServiceBusNotifier, error) {
	logger = core.ComponentLogger(logger, "kitchen")

	var (
		client *azservicebus.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		logger.Info("Using Service Bus connection string", map[string]interface{}{"queue": cfg.Queue})
		client, err = azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.Namespace != "":
		logger.Info("Using Service Bus workload identity", map[string]interface{}{
			"namespace": cfg.Namespace,
			"queue":     cfg.Queue,
		})
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("azure credential: %w", credErr)
		}
		client, err = azservicebus.NewClient(cfg.Namespace, cred, nil)
	default:
		return nil, fmt.Errorf("service bus needs a connection string or namespace: %w", core.ErrMissingConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("service bus client: %w", err)
	}

	sender, err := client.NewSender(cfg.Queue, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("service bus sender for %s: %w", cfg.Queue, err)
	}
	return &ServiceBusNotifier{client: client, sender: sender, queue: cfg.Queue, logger: logger}, nil
}

func (n *ServiceBusNotifier) Notify(ctx context.Context, t Ticket) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	contentType := "application/json"
	subject := t.Event
	id := t.ID
	err = n.sender.SendMessage(ctx, &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		MessageID:   &id,
		ApplicationProperties: map[string]interface{}{
			"order_id": t.OrderID,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("send ticket %s to %s: %w", t.ID, n.queue, err)
	}
	n.logger.DebugWithContext(ctx, "Ticket sent to Service Bus", map[string]interface{}{
		"operation": "kitchen_notify",
		"ticket_id": t.ID,
		"queue":     n.queue,
	})
	return nil
}

// Close closes the sender and the client.
func (n *ServiceBusNotifier) Close(ctx context.Context) error {
	err := n.sender.Close(ctx)
	if n.client != nil {
		if cerr := n.client.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}
