// Package testutil provides test database setup and fixtures. Store and
// engine tests need a reachable MongoDB; set CADETLINK_TEST_MONGO_URI or
// run one on localhost:27017. Tests skip when no server is reachable.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TestContext returns a context suitable for a single test operation.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// SetupTestDB connects to the test MongoDB and hands back a database with
// a unique name. The database is dropped and the client disconnected when
// the test finishes. Skips the test when no server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("CADETLINK_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo not reachable at %s: %v", uri, err)
	}

	name := fmt.Sprintf("cadetlink_test_%s", uuid.NewString()[:8])
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}
