// Package secrets resolves provider credentials from AWS Secrets
// Manager. One JSON secret holds every provider API key, so a single
// rotation updates the whole gateway.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ProviderKeys is the shape of the credential bundle stored under one
// secret name. Empty fields leave the corresponding env value in place.
type ProviderKeys struct {
	Google     string `json:"google"`
	Anthropic  string `json:"anthropic"`
	OpenAI     string `json:"openai"`
	Groq       string `json:"groq"`
	Together   string `json:"together"`
	OpenRouter string `json:"openrouter"`
}

type Store interface {
	GetProviderKeys(ctx context.Context, name string) (ProviderKeys, error)
}

type AWSStore struct {
	client *secretsmanager.Client
}

func NewAWSStore(ctx context.Context, region string) (*AWSStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSStore{client: secretsmanager.NewFromConfig(cfg)}, nil
}

func NewAWSStoreWithConfig(cfg aws.Config) *AWSStore {
	return &AWSStore{client: secretsmanager.NewFromConfig(cfg)}
}

func (s *AWSStore) GetProviderKeys(ctx context.Context, name string) (ProviderKeys, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	}

	result, err := s.client.GetSecretValue(ctx, input)
	if err != nil {
		return ProviderKeys{}, fmt.Errorf("get secret %s: %w", name, err)
	}

	var keys ProviderKeys
	if result.SecretString != nil {
		if err := json.Unmarshal([]byte(*result.SecretString), &keys); err != nil {
			return ProviderKeys{}, fmt.Errorf("decode secret %s: %w", name, err)
		}
	}

	return keys, nil
}

type StaticStore struct {
	Keys ProviderKeys
}

func (s *StaticStore) GetProviderKeys(ctx context.Context, name string) (ProviderKeys, error) {
	return s.Keys, nil
}
