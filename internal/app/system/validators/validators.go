// Package validators installs MongoDB JSON-schema validators on the
// portal's collections so bad writes fail at the database even if a code
// path skips application validation.
package validators

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func profileSchema(role string) bson.M {
	return bson.M{
		"bsonType": "object",
		"required": []string{"_id", "role", "name", "email"},
		"properties": bson.M{
			"_id":   bson.M{"bsonType": "string", "minLength": 1},
			"role":  bson.M{"enum": []string{role}},
			"name":  bson.M{"bsonType": "string", "minLength": 1},
			"email": bson.M{"bsonType": "string", "pattern": `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
			"year":  bson.M{"bsonType": []string{"int", "long", "null"}},
			"approved": bson.M{
				"bsonType": "bool",
			},
		},
	}
}

var campSchema = bson.M{
	"bsonType": "object",
	"required": []string{"name", "start_date", "end_date", "status"},
	"properties": bson.M{
		"name":       bson.M{"bsonType": "string", "minLength": 1},
		"start_date": bson.M{"bsonType": "date"},
		"end_date":   bson.M{"bsonType": "date"},
		"status":     bson.M{"enum": []string{"upcoming", "ongoing", "completed"}},
	},
}

var registrationSchema = bson.M{
	"bsonType": "object",
	"required": []string{"camp_id", "cadet_uid", "status"},
	"properties": bson.M{
		"camp_id":   bson.M{"bsonType": "objectId"},
		"cadet_uid": bson.M{"bsonType": "string", "minLength": 1},
		"status":    bson.M{"enum": []string{"pending", "accepted", "rejected"}},
	},
}

var notificationSchema = bson.M{
	"bsonType": "object",
	"required": []string{"user_uid", "message"},
	"properties": bson.M{
		"user_uid": bson.M{"bsonType": "string", "minLength": 1},
		"message":  bson.M{"bsonType": "string", "minLength": 1},
		"read":     bson.M{"bsonType": "bool"},
	},
}

var auditSchema = bson.M{
	"bsonType": "object",
	"required": []string{"type", "timestamp"},
	"properties": bson.M{
		"type":      bson.M{"bsonType": "string", "minLength": 1},
		"timestamp": bson.M{"bsonType": "date"},
	},
}

var identitySchema = bson.M{
	"bsonType": "object",
	"required": []string{"_id", "email", "password_hash", "role"},
	"properties": bson.M{
		"_id":           bson.M{"bsonType": "string", "minLength": 1},
		"email":         bson.M{"bsonType": "string", "pattern": `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
		"password_hash": bson.M{"bsonType": "string", "minLength": 1},
		"role":          bson.M{"enum": []string{"cadet", "manager", "admin"}},
	},
}

// EnsureAll creates each collection if needed and installs its validator.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	schemas := map[string]bson.M{
		"cadets":        profileSchema("cadet"),
		"admins":        profileSchema("admin"),
		"managers":      profileSchema("manager"),
		"camps":         campSchema,
		"registrations": registrationSchema,
		"notifications": notificationSchema,
		"audit_log":     auditSchema,
		"identities":    identitySchema,
	}
	for name, schema := range schemas {
		if err := ensureCollection(ctx, db, name, schema); err != nil {
			return err
		}
		logger.Debug("validator installed", zap.String("collection", name))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	validator := bson.M{"$jsonSchema": schema}

	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(names) == 0 {
		opts := options.CreateCollection().SetValidator(validator).SetValidationLevel("moderate")
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		return nil
	}

	res := db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
	})
	if err := res.Err(); err != nil {
		return fmt.Errorf("collMod %s: %w", name, err)
	}
	return nil
}
