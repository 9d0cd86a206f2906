package subscriber

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoFilterDocument struct {
	ID     string `bson:"_id"`
	IFCXML string `bson:"ifc_xml"`
}

// MongoConnector reads documents shaped {_id: identity, ifc_xml: "..."}.
type MongoConnector struct {
	collection *mongo.Collection
}

func NewMongoConnector(collection *mongo.Collection) *MongoConnector {
	return &MongoConnector{collection: collection}
}

func (c *MongoConnector) FetchFilterDocument(ctx context.Context, identity string) (string, bool, error) {
	var doc mongoFilterDocument
	err := c.collection.FindOne(ctx, bson.M{"_id": identity}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongodb query failed: %w", err)
	}
	return doc.IFCXML, true, nil
}
