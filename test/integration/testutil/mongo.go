//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ejeapi/pkg/model"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultDatabaseName = "eje"
	ConnectionTimeout   = 10 * time.Second
	CausasCollection    = "causas-eje"
	ManagerCollection   = "manager-config-eje"
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoHelper(t *testing.T, mongoURI, dbName string) *MongoHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := c.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	return &MongoHelper{
		Client:   c,
		Database: c.Database(dbName),
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

func (m *MongoHelper) CleanCollection(t *testing.T, collectionName string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.Database.Collection(collectionName).DeleteMany(ctx, bson.M{}); err != nil {
		t.Fatalf("failed to clean collection %s: %v", collectionName, err)
	}
}

// InsertCausa writes a causa directly, bypassing the API. Used to seed
// states the API cannot produce, such as pivots.
func (m *MongoHelper) InsertCausa(t *testing.T, causa *model.Causa) primitive.ObjectID {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if causa.ID.IsZero() {
		causa.ID = primitive.NewObjectID()
	}
	if _, err := m.Database.Collection(CausasCollection).InsertOne(ctx, causa); err != nil {
		t.Fatalf("failed to insert causa: %v", err)
	}
	return causa.ID
}

func (m *MongoHelper) FindCausa(t *testing.T, id primitive.ObjectID) *model.Causa {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var causa model.Causa
	if err := m.Database.Collection(CausasCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&causa); err != nil {
		t.Fatalf("failed to find causa %s: %v", id.Hex(), err)
	}
	return &causa
}

func (m *MongoHelper) CountCausas(t *testing.T) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(CausasCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count causas: %v", err)
	}
	return count
}
