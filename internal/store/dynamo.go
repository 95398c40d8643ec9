package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

const (
	entityReview      = "REVIEW"
	entityReviewer    = "REVIEWER"
	entityTranslation = "TRANSLATION"

	// DefaultTranslationIndex is the GSI keyed by (ReviewId, TargetLanguage).
	// Only translation items carry TargetLanguage, so the index is sparse.
	DefaultTranslationIndex = "TargetLanguageIndex"
)

// dynamoItem is the single-table row shape.  SK is the review id for review
// rows, REVIEWER#{id} for uniqueness markers and {review}#LANG#{lang} for
// cached translations.
type dynamoItem struct {
	MovieID           string    `dynamodbav:"MovieId"`
	SK                string    `dynamodbav:"SK"`
	EntityType        string    `dynamodbav:"EntityType"`
	ReviewID          string    `dynamodbav:"ReviewId"`
	ReviewerID        string    `dynamodbav:"ReviewerId,omitempty"`
	Content           string    `dynamodbav:"Content,omitempty"`
	CreatedAt         time.Time `dynamodbav:"CreatedAt,omitempty"`
	UpdatedAt         time.Time `dynamodbav:"UpdatedAt,omitempty"`
	TargetLanguage    string    `dynamodbav:"TargetLanguage,omitempty"`
	TranslatedContent string    `dynamodbav:"TranslatedContent,omitempty"`
	ComputedAt        time.Time `dynamodbav:"ComputedAt,omitempty"`
}

func reviewerSK(reviewerID string) string { return "REVIEWER#" + reviewerID }
func translationSKPrefix(reviewID string) string {
	return reviewID + "#LANG#"
}

// DynamoStore keeps records in a DynamoDB table with partition key MovieId,
// sort key SK and the translation GSI.
type DynamoStore struct {
	api   DynamoAPI
	table string
	index string
}

// NewDynamoStore binds the store to a table; an empty index name selects
// DefaultTranslationIndex. The table must have:
//
//	partition key  MovieId (S)
//	sort key       SK (S)
//	GSI index      partition key ReviewId (S), sort key TargetLanguage (S),
//	               projection ALL
//
// A table keyed on (MovieId, ReviewId) cannot hold the reviewer markers or
// translation items next to the reviews and is not supported.
func NewDynamoStore(api DynamoAPI, table, index string) *DynamoStore {
	if index == "" {
		index = DefaultTranslationIndex
	}
	return &DynamoStore{api: api, table: table, index: index}
}

func (s *DynamoStore) key(movieID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"MovieId": &types.AttributeValueMemberS{Value: movieID},
		"SK":      &types.AttributeValueMemberS{Value: sk},
	}
}

func (s *DynamoStore) InsertReview(ctx context.Context, r model.Review) error {
	marker, err := attributevalue.MarshalMap(dynamoItem{
		MovieID: r.MovieID, SK: reviewerSK(r.ReviewerID), EntityType: entityReviewer,
		ReviewID: r.ReviewID, ReviewerID: r.ReviewerID,
	})
	if err != nil {
		return fmt.Errorf("marshal reviewer marker: %w", err)
	}
	item, err := attributevalue.MarshalMap(dynamoItem{
		MovieID: r.MovieID, SK: r.ReviewID, EntityType: entityReview,
		ReviewID: r.ReviewID, ReviewerID: r.ReviewerID, Content: r.Content,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(s.table), Item: marker, ConditionExpression: aws.String("attribute_not_exists(SK)")}},
			{Put: &types.Put{TableName: aws.String(s.table), Item: item, ConditionExpression: aws.String("attribute_not_exists(SK)")}},
		},
	})
	if isConditionFailure(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("dynamo insert review: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetReview(ctx context.Context, movieID, reviewID string) (model.Review, error) {
	it, err := s.getItem(ctx, movieID, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if it.EntityType != entityReview {
		return model.Review{}, ErrNotFound
	}
	return it.review(), nil
}

func (s *DynamoStore) FindReviewByReviewer(ctx context.Context, movieID, reviewerID string) (model.Review, error) {
	marker, err := s.getItem(ctx, movieID, reviewerSK(reviewerID))
	if err != nil {
		return model.Review{}, err
	}
	return s.GetReview(ctx, movieID, marker.ReviewID)
}

func (s *DynamoStore) ListReviews(ctx context.Context, movieID string) ([]model.Review, error) {
	out := []model.Review{}
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("MovieId = :m"),
		FilterExpression:       aws.String("EntityType = :type"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":    &types.AttributeValueMemberS{Value: movieID},
			":type": &types.AttributeValueMemberS{Value: entityReview},
		},
		ConsistentRead: aws.Bool(true),
	}
	for {
		resp, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("dynamo list reviews: %w", err)
		}
		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal reviews: %w", err)
		}
		for _, it := range items {
			out = append(out, it.review())
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

func (s *DynamoStore) UpdateReviewContent(ctx context.Context, movieID, reviewID, content string, updatedAt time.Time) (model.Review, error) {
	cached, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("MovieId = :m AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":      &types.AttributeValueMemberS{Value: movieID},
			":prefix": &types.AttributeValueMemberS{Value: translationSKPrefix(reviewID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return model.Review{}, fmt.Errorf("dynamo list cached translations: %w", err)
	}
	ts, err := attributevalue.Marshal(updatedAt)
	if err != nil {
		return model.Review{}, fmt.Errorf("marshal updatedAt: %w", err)
	}
	writes := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName:           aws.String(s.table),
			Key:                 s.key(movieID, reviewID),
			UpdateExpression:    aws.String("SET Content = :content, UpdatedAt = :updated"),
			ConditionExpression: aws.String("attribute_exists(SK)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":content": &types.AttributeValueMemberS{Value: content},
				":updated": ts,
			},
		},
	}}
	// The supported language set is small enough to fit in one transaction.
	for _, it := range cached.Items {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(s.table), Key: map[string]types.AttributeValue{
				"MovieId": it["MovieId"],
				"SK":      it["SK"],
			}},
		})
	}
	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if isConditionFailure(err) {
		return model.Review{}, ErrNotFound
	}
	if err != nil {
		return model.Review{}, fmt.Errorf("dynamo update review: %w", err)
	}
	return s.GetReview(ctx, movieID, reviewID)
}

func (s *DynamoStore) FindTranslation(ctx context.Context, reviewID string, lang model.Language) (model.TranslationCacheEntry, error) {
	resp, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.index),
		KeyConditionExpression: aws.String("ReviewId = :r AND TargetLanguage = :l"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: reviewID},
			":l": &types.AttributeValueMemberS{Value: string(lang)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return model.TranslationCacheEntry{}, fmt.Errorf("dynamo query translation index: %w", err)
	}
	if len(resp.Items) == 0 {
		return model.TranslationCacheEntry{}, ErrNotFound
	}
	var it dynamoItem
	if err := attributevalue.UnmarshalMap(resp.Items[0], &it); err != nil {
		return model.TranslationCacheEntry{}, fmt.Errorf("unmarshal translation: %w", err)
	}
	return model.TranslationCacheEntry{
		MovieID:           it.MovieID,
		ReviewID:          it.ReviewID,
		TargetLanguage:    model.Language(it.TargetLanguage),
		TranslatedContent: it.TranslatedContent,
		ComputedAt:        it.ComputedAt,
	}, nil
}

func (s *DynamoStore) PutTranslation(ctx context.Context, e model.TranslationCacheEntry) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		MovieID: e.MovieID, SK: translationSKPrefix(e.ReviewID) + string(e.TargetLanguage), EntityType: entityTranslation,
		ReviewID: e.ReviewID, TargetLanguage: string(e.TargetLanguage),
		TranslatedContent: e.TranslatedContent, ComputedAt: e.ComputedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal translation: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item}); err != nil {
		return fmt.Errorf("dynamo put translation: %w", err)
	}
	return nil
}

func (s *DynamoStore) getItem(ctx context.Context, movieID, sk string) (dynamoItem, error) {
	resp, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(movieID, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dynamoItem{}, fmt.Errorf("dynamo get item: %w", err)
	}
	if resp.Item == nil {
		return dynamoItem{}, ErrNotFound
	}
	var it dynamoItem
	if err := attributevalue.UnmarshalMap(resp.Item, &it); err != nil {
		return dynamoItem{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return it, nil
}

func (it dynamoItem) review() model.Review {
	return model.Review{
		MovieID:    it.MovieID,
		ReviewID:   it.ReviewID,
		ReviewerID: it.ReviewerID,
		Content:    it.Content,
		CreatedAt:  it.CreatedAt,
		UpdatedAt:  it.UpdatedAt,
	}
}

func isConditionFailure(err error) bool {
	if err == nil {
		return false
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
		return false
	}
	var failed *types.ConditionalCheckFailedException
	return errors.As(err, &failed)
}
