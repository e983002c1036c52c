package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// summaryItem is the DynamoDB item representation of a summary.
type summaryItem struct {
	ID               string `dynamodbav:"id"`
	StartedAt        string `dynamodbav:"started_at"`
	EndedAt          string `dynamodbav:"ended_at"`
	Laps             int    `dynamodbav:"laps"`
	Deliveries       int    `dynamodbav:"deliveries"`
	ExperienceGained int64  `dynamodbav:"experience_gained"`
	Outcome          string `dynamodbav:"outcome"`
	Reason           string `dynamodbav:"reason,omitempty"`
	DurationNS       int64  `dynamodbav:"duration_ns"`
}

// HistoryStore is a DynamoDB-backed implementation of history.Store.
type HistoryStore struct {
	client       API
	tableName    string
	queryTimeout time.Duration
}

// NewHistoryStore creates a history store on client.
func NewHistoryStore(client API, cfg Config) *HistoryStore {
	if cfg.TableName == "" {
		cfg.TableName = DefaultConfig().TableName
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	return &HistoryStore{client: client, tableName: cfg.TableName, queryTimeout: cfg.QueryTimeout}
}

// Save persists a summary.
func (s *HistoryStore) Save(ctx context.Context, summary history.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := summary.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	av, err := attributevalue.MarshalMap(toItem(summary))
	if err != nil {
		return err
	}

	// Summaries are written once.
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("id"))).
		Build()
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return history.ErrExists
		}
		return err
	}
	return nil
}

// Get retrieves a summary by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return history.Summary{}, err
	}
	if id == "" {
		return history.Summary{}, history.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return history.Summary{}, err
	}
	if result.Item == nil {
		return history.Summary{}, history.ErrNotFound
	}

	var item summaryItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return history.Summary{}, err
	}
	return fromItem(item), nil
}

// List returns the most recent summaries first. DynamoDB has no global order,
// so the whole table is scanned and sorted.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var out []history.Summary
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var item summaryItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, err
			}
			out = append(out, fromItem(item))
		}
	}

	history.SortRecent(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toItem(s history.Summary) summaryItem {
	return summaryItem{
		ID:               s.ID,
		StartedAt:        s.StartedAt.UTC().Format(time.RFC3339Nano),
		EndedAt:          s.EndedAt.UTC().Format(time.RFC3339Nano),
		Laps:             s.Laps,
		Deliveries:       s.Deliveries,
		ExperienceGained: s.ExperienceGained,
		Outcome:          s.Outcome,
		Reason:           s.Reason,
		DurationNS:       int64(s.Duration),
	}
}

func fromItem(item summaryItem) history.Summary {
	started, _ := time.Parse(time.RFC3339Nano, item.StartedAt)
	ended, _ := time.Parse(time.RFC3339Nano, item.EndedAt)
	return history.Summary{
		ID:               item.ID,
		StartedAt:        started,
		EndedAt:          ended,
		Laps:             item.Laps,
		Deliveries:       item.Deliveries,
		ExperienceGained: item.ExperienceGained,
		Outcome:          item.Outcome,
		Reason:           item.Reason,
		Duration:         time.Duration(item.DurationNS),
	}
}

var _ history.Store = (*HistoryStore)(nil)
