package reagentcrawler

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const itemCollection = "items"

// mongoSink upserts items by url into <site>.items.
type mongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func mongoURI(config *configService) string {
	if uri := config.EnvString("DB_URI"); uri != "" {
		return uri
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s",
		config.EnvString("DB_USERNAME"),
		config.EnvString("DB_PASSWORD"),
		config.EnvString("DB_HOST", "localhost"),
		config.EnvString("DB_PORT", "27017"),
	)
}

func newMongoSink(ctx context.Context, config *configService, site string) (*mongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI(config)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(site).Collection(itemCollection)
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"url": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("could not create index: %w", err)
	}
	return &mongoSink{client: client, collection: collection}, nil
}

func (s *mongoSink) Name() string { return "mongo" }

func (s *mongoSink) Write(ctx context.Context, item CrawlItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.collection.ReplaceOne(ctx, bson.D{{Key: "url", Value: item.URL}}, item, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save item: %w", err)
	}
	return nil
}

func (s *mongoSink) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
