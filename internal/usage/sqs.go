package usage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSRecorder ships attempt records to a queue for a downstream
// accounting consumer instead of writing them locally.
type SQSRecorder struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSRecorder(ctx context.Context, region, queueURL string) (*SQSRecorder, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSRecorder{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

func NewSQSRecorderWithConfig(cfg aws.Config, queueURL string) *SQSRecorder {
	return &SQSRecorder{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

func (r *SQSRecorder) Record(ctx context.Context, attempt Attempt) error {
	body, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"ModelKey": {
				DataType:    aws.String("String"),
				StringValue: aws.String(attempt.ModelKey),
			},
		},
	}

	if _, err := r.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send usage message: %w", err)
	}

	return nil
}
