package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

// AWSConfig selects the region and the DynamoDB table layout. The endpoint
// override points the DynamoDB client at a local emulator.
type AWSConfig struct {
	Region         string `env:"AWS_REGION" envDefault:"eu-west-1"`
	DynamoTable    string `env:"DYNAMO_TABLE" envDefault:"MovieReviews"`
	DynamoIndex    string `env:"DYNAMO_TRANSLATION_INDEX" envDefault:"TargetLanguageIndex"`
	DynamoEndpoint string `env:"DYNAMO_ENDPOINT"`
}

// LoadAWS resolves credentials through the default chain.
func LoadAWS(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// NewDynamoClient builds the DynamoDB client for the record store.
func NewDynamoClient(awsCfg aws.Config, cfg AWSConfig) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})
}

// NewTranslateClient builds the Amazon Translate client used as the oracle.
func NewTranslateClient(awsCfg aws.Config) *translate.Client {
	return translate.NewFromConfig(awsCfg)
}
