package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// TranslateAPI is the subset of *translate.Client used by AWSOracle.
type TranslateAPI interface {
	TranslateText(ctx context.Context, in *translate.TranslateTextInput, opts ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// AWSOracle calls Amazon Translate.
type AWSOracle struct {
	api TranslateAPI
}

// NewAWSOracle wraps a translate client.
func NewAWSOracle(api TranslateAPI) *AWSOracle { return &AWSOracle{api: api} }

func (o *AWSOracle) Translate(ctx context.Context, text string, source, target model.Language) (string, error) {
	out, err := o.api.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(string(source)),
		TargetLanguageCode: aws.String(string(target)),
	})
	if err != nil {
		return "", fmt.Errorf("amazon translate: %w", err)
	}
	if out == nil || out.TranslatedText == nil {
		return "", errors.New("amazon translate: empty response")
	}
	return *out.TranslatedText, nil
}
