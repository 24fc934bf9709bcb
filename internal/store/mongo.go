package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ppiankov/cardaudit/internal/model"
)

// MongoSink upserts one document per model, keyed by model name
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to uri and verifies the connection
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Save replaces each model's document with its latest report
func (s *MongoSink) Save(ctx context.Context, runID string, reports []*model.ModelReport) error {
	scoredAt := time.Now().UTC()
	opts := options.Replace().SetUpsert(true)

	for _, report := range reports {
		doc, err := reportDocument(report, runID, scoredAt)
		if err != nil {
			return err
		}
		if _, err := s.collection.ReplaceOne(ctx, bson.M{"model_name": report.ModelName}, doc, opts); err != nil {
			return fmt.Errorf("upsert %s: %w", report.ModelName, err)
		}
	}
	return nil
}

// Get returns the stored report for a model, or nil when none exists
func (s *MongoSink) Get(ctx context.Context, modelName string) (*model.ModelReport, error) {
	var doc bson.M
	err := s.collection.FindOne(ctx, bson.M{"model_name": modelName}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", modelName, err)
	}
	return decodeReport(doc)
}

// Close disconnects the client
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// reportDocument converts a report into a BSON document using the report's
// JSON field names, then stamps the run metadata.
func reportDocument(report *model.ModelReport, runID string, scoredAt time.Time) (bson.M, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report %s: %w", report.ModelName, err)
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert report %s: %w", report.ModelName, err)
	}
	doc["run_id"] = runID
	doc["scored_at"] = scoredAt
	return doc, nil
}

func decodeReport(doc bson.M) (*model.ModelReport, error) {
	delete(doc, "_id")
	delete(doc, "run_id")
	delete(doc, "scored_at")

	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	var report model.ModelReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
