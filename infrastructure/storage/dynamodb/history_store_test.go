package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/taskloop/domain/history"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/storetest"
)

// fakeTable is an in-memory table keyed by the "id" attribute. Scan returns
// one item per page to exercise pagination.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	order []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func idOf(item map[string]types.AttributeValue) string {
	if v, ok := item["id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func namesAttribute(names map[string]string, attr string) bool {
	for _, n := range names {
		if n == attr {
			return true
		}
	}
	return false
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := idOf(in.Item)
	if in.ConditionExpression == nil || !namesAttribute(in.ExpressionAttributeNames, "id") {
		return nil, errors.New("put without an attribute_not_exists(id) condition")
	}
	if _, exists := f.items[id]; exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if _, exists := f.items[id]; !exists {
		f.order = append(f.order, id)
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[idOf(in.Key)]}, nil
}

func (f *fakeTable) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := 0
	if in.ExclusiveStartKey != nil {
		last := idOf(in.ExclusiveStartKey)
		for i, id := range f.order {
			if id == last {
				start = i + 1
			}
		}
	}
	if start >= len(f.order) {
		return &dynamodb.ScanOutput{}, nil
	}

	id := f.order[start]
	out := &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{f.items[id]}}
	if start+1 < len(f.order) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
	}
	return out, nil
}

func TestHistoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) history.Store {
		return NewHistoryStore(newFakeTable(), DefaultConfig())
	})
}

func TestNewHistoryStore_Defaults(t *testing.T) {
	t.Parallel()

	s := NewHistoryStore(nil, Config{})
	if s.tableName != "taskloop_sessions" {
		t.Errorf("tableName = %s", s.tableName)
	}
	if s.queryTimeout != 30*time.Second {
		t.Errorf("queryTimeout = %v", s.queryTimeout)
	}
}

func TestItemMapping(t *testing.T) {
	t.Parallel()

	want := storetest.Summary("m-1", 90*time.Minute)
	got := fromItem(toItem(want))
	if !got.StartedAt.Equal(want.StartedAt) || !got.EndedAt.Equal(want.EndedAt) {
		t.Errorf("times = %v..%v", got.StartedAt, got.EndedAt)
	}
	if got.Duration != want.Duration || got.Reason != want.Reason {
		t.Errorf("fromItem(toItem()) = %+v", got)
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	WithRegion("eu-west-1")(&cfg)
	WithEndpoint("http://localhost:8000")(&cfg)
	WithTableName("sessions")(&cfg)
	if cfg.Region != "eu-west-1" || cfg.Endpoint != "http://localhost:8000" || cfg.TableName != "sessions" {
		t.Errorf("config = %+v", cfg)
	}
}
