// Package queue_publisher publishes domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures
// without interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/travel-reservation/internal/model"
    q "github.com/iliyamo/travel-reservation/internal/queue"
    "github.com/iliyamo/travel-reservation/internal/repository"
)

// Publisher emits settlement outcomes to durable broker queues.  It
// satisfies the settlement engine's Events dependency.  A connection is
// dialed per publish; publishing is rare (once per settled booking) and
// this keeps the publisher robust against broker restarts without
// connection-management machinery.
type Publisher struct{}

// New returns a broker publisher.
func New() *Publisher { return &Publisher{} }

// BookingConfirmed publishes a BookingConfirmedEvent to the
// "booking.confirmed" queue.  Messages are marked persistent.
func (p *Publisher) BookingConfirmed(ctx context.Context, b *model.Booking) error {
    ev := q.BookingConfirmedEvent{
        BookingID:            b.ID,
        Reference:            b.Reference,
        TransactionID:        b.TransactionID,
        TravelerID:           b.TravelerID,
        ResourceID:           b.ResourceID,
        TravelDate:           b.TravelDate,
        UnitCodes:            b.UnitCodes,
        TotalAmountCents:     b.TotalAmountCents,
        AmountPaidCents:      b.AmountPaidCents,
        RemainingAmountCents: b.RemainingAmountCents,
        PaymentStatus:        string(b.PaymentStatus),
        ConfirmedAt:          time.Now().UTC().Format(time.RFC3339),
    }
    return publish(ctx, "booking.confirmed", ev)
}

// RefundRequired publishes a RefundRequiredEvent to the
// "refund.required" queue.
func (p *Publisher) RefundRequired(ctx context.Context, rec *repository.RefundRecord) error {
    ev := q.RefundRequiredEvent{
        TransactionID:   rec.TransactionID,
        TravelerID:      rec.TravelerID,
        ResourceID:      rec.ResourceID,
        TravelDate:      rec.TravelDate,
        UnitCodes:       rec.UnitCodes,
        AmountPaidCents: rec.AmountPaidCents,
        Currency:        rec.Currency,
        Reason:          rec.Reason,
        RecordedAt:      time.Now().UTC().Format(time.RFC3339),
    }
    return publish(ctx, "refund.required", ev)
}

func publish(ctx context.Context, queueName string, event any) error {
    conn, err := amqp.Dial(q.BrokerURL())
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        queueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
