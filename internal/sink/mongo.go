package sink

import (
	"context"
	"fmt"
	"time"

	"notiontable/internal/config"
	"notiontable/internal/logger"
	"notiontable/internal/models"
	"notiontable/internal/table"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoSink writes one document per row into a collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *logger.Logger
	mode       string
}

// OpenMongo connects to uri and targets database.collection.
func OpenMongo(ctx context.Context, uri, database, collection, mode string, log *logger.Logger) (*MongoSink, error) {
	if log == nil {
		log = logger.Discard()
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     log,
		mode:       mode,
	}, nil
}

// Write inserts every row of t. Replace mode drops the collection first.
func (s *MongoSink) Write(ctx context.Context, t *table.Table) (int, error) {
	if s.mode != config.ModeAppend {
		if err := s.collection.Drop(ctx); err != nil {
			return 0, fmt.Errorf("drop collection: %w", err)
		}
	}

	docs := Documents(t)
	if len(docs) == 0 {
		return 0, nil
	}

	res, err := s.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert documents: %w", err)
	}

	s.logger.Debug("documents written", "collection", s.collection.Name(), "documents", len(res.InsertedIDs))

	return len(res.InsertedIDs), nil
}

// Close disconnects the client.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

// Documents converts t into ordered BSON documents, one per row.
func Documents(t *table.Table) []any {
	columns := t.Columns()
	rows := t.Rows()

	docs := make([]any, 0, len(rows))
	for _, values := range rows {
		doc := make(bson.D, 0, len(columns))
		for i, col := range columns {
			doc = append(doc, bson.E{Key: col, Value: bsonValue(values[i])})
		}

		docs = append(docs, doc)
	}

	return docs
}

func bsonValue(v models.Value) any {
	if r, ok := v.(models.DateRange); ok {
		var start any
		if !r.Start.IsZero() {
			start = r.Start
		}

		return bson.D{{Key: "start", Value: start}, {Key: "end", Value: r.End}}
	}

	return v
}
