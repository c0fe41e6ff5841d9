package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"neoport/internal/config"
	"neoport/internal/core/model"
)

// mongoRecord 集合中的文档结构
type mongoRecord struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	UserID          string              `bson:"userId"`
	Target          string              `bson:"target"`
	ScanType        string              `bson:"scanType"`
	TotalPorts      int                 `bson:"totalPorts"`
	OpenPorts       int                 `bson:"openPorts"`
	ClosedPorts     int                 `bson:"closedPorts"`
	ScanTimeSeconds string              `bson:"scanTimeSeconds"`
	Results         []model.ProbeResult `bson:"results"`
	CreatedAt       time.Time           `bson:"createdAt"`
}

func (m *mongoRecord) toRecord() *Record {
	return &Record{
		ID:              m.ID.Hex(),
		UserID:          m.UserID,
		Target:          m.Target,
		ScanType:        model.ScanType(m.ScanType),
		TotalPorts:      m.TotalPorts,
		OpenPorts:       m.OpenPorts,
		ClosedPorts:     m.ClosedPorts,
		ScanTimeSeconds: m.ScanTimeSeconds,
		Results:         m.Results,
		CreatedAt:       m.CreatedAt,
	}
}

// MongoStore MongoDB 存储
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoStore 连接 MongoDB 并确保索引存在
func NewMongoStore(ctx context.Context, cfg *config.MongoConfig) (*MongoStore, error) {
	if cfg == nil || cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	// mongo.Connect 只创建客户端，Ping 才真正发起 IO
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	database, collection := cfg.Database, cfg.Collection
	if database == "" {
		database = "neoport"
	}
	if collection == "" {
		collection = "port_histories"
	}
	coll := client.Database(database).Collection(collection)

	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create mongo index: %w", err)
	}

	return &MongoStore{client: client, collection: coll, timeout: timeout}, nil
}

func (s *MongoStore) Save(ctx context.Context, rec *Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	prepare(rec)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := &mongoRecord{
		ID:              primitive.NewObjectID(),
		UserID:          rec.UserID,
		Target:          rec.Target,
		ScanType:        string(rec.ScanType),
		TotalPorts:      rec.TotalPorts,
		OpenPorts:       rec.OpenPorts,
		ClosedPorts:     rec.ClosedPorts,
		ScanTimeSeconds: rec.ScanTimeSeconds,
		Results:         rec.Results,
		CreatedAt:       rec.CreatedAt,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert history: %w", err)
	}
	rec.ID = doc.ID.Hex()
	return rec.ID, nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	out := make([]*Record, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toRecord())
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}
