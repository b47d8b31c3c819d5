package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/outbox"
	"github.com/sevalabs/gramseva-backend/pkg/outbox/idempotency"
	"github.com/sevalabs/gramseva-backend/pkg/outbox/payloads"
	"github.com/sevalabs/gramseva-backend/pkg/outbox/registry"
)

const lifecycleNotificationConsumer = "lifecycle-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type requestLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
}

// Consumer turns lifecycle domain events into in-app notifications for the
// customer and the stakeholders working the request.
type Consumer struct {
	repo         repository
	requests     requestLookup
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// ConsumerParams bundles the consumer dependencies.
type ConsumerParams struct {
	Repo         repository
	Requests     requestLookup
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Manager
	Logger       *logger.Logger
}

// NewConsumer builds a lifecycle notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request lookup required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repo,
		requests:     params.Requests,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     newLifecycleDecoders(),
		logg:         params.Logger,
	}, nil
}

func newLifecycleDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventRequestCreated, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.RequestCreatedEvent
		return &p, json.Unmarshal(data, &p)
	})
	decoders.Register(enums.EventPaymentCaptured, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.PaymentCapturedEvent
		return &p, json.Unmarshal(data, &p)
	})
	decoders.Register(enums.EventRequestStateChanged, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.RequestStateChangedEvent
		return &p, json.Unmarshal(data, &p)
	})
	decoders.Register(enums.EventStakeholderAssigned, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.StakeholderAssignedEvent
		return &p, json.Unmarshal(data, &p)
	})
	decoders.Register(enums.EventRequestCompleted, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.RequestCompletedEvent
		return &p, json.Unmarshal(data, &p)
	})
	decoders.Register(enums.EventRequestRejected, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.RequestRejectedEvent
		return &p, json.Unmarshal(data, &p)
	})
	decoders.Register(enums.EventCommissionCredited, 1, func(data json.RawMessage) (interface{}, error) {
		var p payloads.CommissionCreditedEvent
		return &p, json.Unmarshal(data, &p)
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		// Not every lifecycle event produces a notification.
		c.logg.Info(logCtx, "skipping event without notification mapping")
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, lifecycleNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notifications, err := c.notificationsFor(ctx, payload)
	if err != nil {
		c.logg.Error(logCtx, "notification mapping failed", err)
		_ = c.idempotency.Delete(ctx, lifecycleNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	for i := range notifications {
		if err := c.repo.Create(ctx, &notifications[i]); err != nil {
			c.logg.Error(logCtx, "notification insert failed", err)
			_ = c.idempotency.Delete(ctx, lifecycleNotificationConsumer, eventID)
			return processResult{nack: true}
		}
	}
	return processResult{ack: true}
}

// notificationsFor maps one decoded event to zero or more notification rows.
func (c *Consumer) notificationsFor(ctx context.Context, payload interface{}) ([]models.Notification, error) {
	switch p := payload.(type) {
	case *payloads.RequestCreatedEvent:
		return []models.Notification{notificationRow(
			p.CustomerID,
			enums.NotificationRequestCreated,
			"Request received",
			fmt.Sprintf("Your %s request %s has been received.", p.ServiceType, p.RequestNumber),
			p,
		)}, nil

	case *payloads.PaymentCapturedEvent:
		request, err := c.requests.FindByID(ctx, p.ServiceRequestID)
		if err != nil {
			return nil, fmt.Errorf("load request %s: %w", p.ServiceRequestID, err)
		}
		return []models.Notification{notificationRow(
			request.CustomerID,
			enums.NotificationPaymentCaptured,
			"Payment received",
			fmt.Sprintf("Payment for request %s has been received.", p.RequestNumber),
			p,
		)}, nil

	case *payloads.RequestStateChangedEvent:
		// Terminal moves carry their own, richer events.
		if p.ToStatus.IsTerminal() {
			return nil, nil
		}
		request, err := c.requests.FindByID(ctx, p.ServiceRequestID)
		if err != nil {
			return nil, fmt.Errorf("load request %s: %w", p.ServiceRequestID, err)
		}
		return []models.Notification{notificationRow(
			request.CustomerID,
			enums.NotificationStatusChanged,
			"Request update",
			fmt.Sprintf("Request %s is now %s.", p.RequestNumber, p.ToStatus),
			p,
		)}, nil

	case *payloads.StakeholderAssignedEvent:
		return []models.Notification{notificationRow(
			p.StakeholderID,
			enums.NotificationStakeholderAssigned,
			"New request assigned",
			fmt.Sprintf("Request %s has been assigned to you.", p.RequestNumber),
			p,
		)}, nil

	case *payloads.RequestCompletedEvent:
		return []models.Notification{notificationRow(
			p.CustomerID,
			enums.NotificationStatusChanged,
			"Request completed",
			fmt.Sprintf("Your request %s has been completed.", p.RequestNumber),
			p,
		)}, nil

	case *payloads.RequestRejectedEvent:
		request, err := c.requests.FindByID(ctx, p.ServiceRequestID)
		if err != nil {
			return nil, fmt.Errorf("load request %s: %w", p.ServiceRequestID, err)
		}
		body := fmt.Sprintf("Your request %s was not completed.", p.RequestNumber)
		if p.Reason != "" {
			body = fmt.Sprintf("Your request %s was not completed: %s", p.RequestNumber, p.Reason)
		}
		return []models.Notification{notificationRow(
			request.CustomerID,
			enums.NotificationStatusChanged,
			"Request closed",
			body,
			p,
		)}, nil

	case *payloads.CommissionCreditedEvent:
		request, err := c.requests.FindByID(ctx, p.ServiceRequestID)
		if err != nil {
			return nil, fmt.Errorf("load request %s: %w", p.ServiceRequestID, err)
		}
		return []models.Notification{notificationRow(
			p.StakeholderID,
			enums.NotificationCommissionCredited,
			"Commission credited",
			fmt.Sprintf("₹%s has been credited to your wallet for request %s.",
				p.Amount.StringFixed(2), request.RequestNumber),
			p,
		)}, nil
	}
	return nil, nil
}

func notificationRow(userID uuid.UUID, kind enums.NotificationKind, title, body string, payload interface{}) models.Notification {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return models.Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Body:    body,
		Payload: raw,
	}
}
