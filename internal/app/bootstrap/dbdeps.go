package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
}
