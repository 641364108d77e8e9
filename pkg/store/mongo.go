package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/matzehuels/skillindex/pkg/skill"
)

// DefaultMongoDatabase is used when the DSN names no database.
const DefaultMongoDatabase = "skillindex"

// MongoStore stores records as documents keyed by a unique repo_url index.
type MongoStore struct {
	client *mongo.Client
	skills *mongo.Collection
	audit  *mongo.Collection
}

// OpenMongo connects to MongoDB and verifies the connection.
func OpenMongo(ctx context.Context, dsn string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mongo dsn: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := ping(ctx, func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	return &MongoStore{
		client: client,
		skills: db.Collection(SkillsTable),
		audit:  db.Collection(AuditTable),
	}, nil
}

func (s *MongoStore) Lookup(ctx context.Context, urls []string) (map[string]skill.Record, error) {
	out := make(map[string]skill.Record)
	urls = dedupURLs(urls)
	if len(urls) == 0 {
		return out, nil
	}

	cur, err := s.skills.Find(ctx, bson.M{"repo_url": bson.M{"$in": urls}})
	if err != nil {
		return nil, fmt.Errorf("find skills: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var rec skill.Record
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode skill: %w", err)
		}
		out[rec.RepoURL] = rec
	}
	return out, cur.Err()
}

func (s *MongoStore) Upsert(ctx context.Context, rec skill.Record) error {
	_, err := s.skills.UpdateOne(ctx,
		bson.M{"repo_url": rec.RepoURL},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.RepoURL, err)
	}
	return nil
}

func (s *MongoStore) AppendAudit(ctx context.Context, e skill.AuditEntry) error {
	if _, err := s.audit.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.skills.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "repo_url", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("repo_url_unique"),
	})
	if err != nil {
		return fmt.Errorf("create repo_url index: %w", err)
	}
	_, err = s.audit.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
