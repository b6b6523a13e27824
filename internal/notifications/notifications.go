// Package notifications raises operational alerts about gateway health.
// These are for operators, not end users; the apology text a user sees
// on total failure is produced by the gateway itself.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type NotificationType string

const NotificationProvidersExhausted NotificationType = "providers_exhausted"

type Notification struct {
	Type     NotificationType  `json:"type"`
	ModelKey string            `json:"model_key,omitempty"`
	Message  string            `json:"message"`
	Data     map[string]string `json:"data,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

type SNSNotifier struct {
	client   *sns.Client
	topicArn string
}

func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}, nil
}

func NewSNSNotifierWithConfig(cfg aws.Config, topicArn string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

func (n *SNSNotifier) Send(ctx context.Context, notification Notification) error {
	message, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"Type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(notification.Type)),
			},
		},
	}

	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	slog.Info("notification sent", "type", notification.Type, "model", notification.ModelKey)

	return nil
}

type InMemoryNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{notifications: make([]Notification, 0)}
}

func (n *InMemoryNotifier) Send(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *InMemoryNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	result := make([]Notification, len(n.notifications))
	copy(result, n.notifications)
	return result
}
