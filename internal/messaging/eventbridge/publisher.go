// Package eventbridge publishes processing-log notifications to an AWS
// EventBridge bus.
package eventbridge

import (
	"context"
	"time"

	appErrors "proclog-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Source identifies this service on every published event.
const Source = "proclog.api"

// Publisher sends notifications to an EventBridge bus. Calls run through a
// circuit breaker so a broken bus fails fast instead of stalling every
// request on retries.
type Publisher struct {
	client  *eventbridge.Client
	busName string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher.
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eventbridge-publisher",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Publisher{
		client:  client,
		busName: busName,
		breaker: breaker,
		logger:  logger,
	}
}

// Publish sends one notification. The operation name travels in DetailType
// so consumers can route without parsing the body.
func (p *Publisher) Publish(ctx context.Context, operation string, body []byte) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
			Entries: []types.PutEventsRequestEntry{
				{
					EventBusName: aws.String(p.busName),
					Source:       aws.String(Source),
					DetailType:   aws.String(operation),
					Detail:       aws.String(string(body)),
					Time:         aws.Time(time.Now()),
				},
			},
		})
		if err != nil {
			return nil, err
		}
		if out.FailedEntryCount > 0 {
			return nil, appErrors.NewDependency("event bus rejected entry", nil)
		}
		return out, nil
	})
	if err != nil {
		p.logger.Error("failed to publish notification",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return appErrors.NewDependency("failed to publish notification", err)
	}
	return nil
}
