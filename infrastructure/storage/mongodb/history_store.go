package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// summaryDocument is the MongoDB document representation of a summary.
type summaryDocument struct {
	ID               string    `bson:"_id"`
	StartedAt        time.Time `bson:"started_at"`
	EndedAt          time.Time `bson:"ended_at"`
	Laps             int       `bson:"laps"`
	Deliveries       int       `bson:"deliveries"`
	ExperienceGained int64     `bson:"experience_gained"`
	Outcome          string    `bson:"outcome"`
	Reason           string    `bson:"reason,omitempty"`
	DurationNS       int64     `bson:"duration_ns"`
}

// HistoryStore is a MongoDB-backed implementation of history.Store.
type HistoryStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewHistoryStore creates a history store on the named collection.
func NewHistoryStore(client *Client, collectionName string) *HistoryStore {
	if collectionName == "" {
		collectionName = "sessions"
	}
	return &HistoryStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
	}
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

	if _, err := s.collection.InsertOne(ctx, toDocument(summary)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
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

	var doc summaryDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return history.Summary{}, history.ErrNotFound
		}
		return history.Summary{}, err
	}
	return fromDocument(doc), nil
}

// List returns the most recent summaries first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.M{}, findOptions(limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var out []history.Summary
	for cursor.Next(ctx) {
		var doc summaryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, fromDocument(doc))
	}
	return out, cursor.Err()
}

func findOptions(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "ended_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func toDocument(s history.Summary) summaryDocument {
	return summaryDocument{
		ID:               s.ID,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		Laps:             s.Laps,
		Deliveries:       s.Deliveries,
		ExperienceGained: s.ExperienceGained,
		Outcome:          s.Outcome,
		Reason:           s.Reason,
		DurationNS:       int64(s.Duration),
	}
}

func fromDocument(d summaryDocument) history.Summary {
	return history.Summary{
		ID:               d.ID,
		StartedAt:        d.StartedAt,
		EndedAt:          d.EndedAt,
		Laps:             d.Laps,
		Deliveries:       d.Deliveries,
		ExperienceGained: d.ExperienceGained,
		Outcome:          d.Outcome,
		Reason:           d.Reason,
		Duration:         time.Duration(d.DurationNS),
	}
}

var _ history.Store = (*HistoryStore)(nil)
