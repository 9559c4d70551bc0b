// Package txn wraps MongoDB multi-document transactions and detects
// deployments that cannot run them (standalone servers, some hosted
// document stores).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction runs fn inside a session transaction. The callback's
// writes commit together or not at all. Callers should check the returned
// error with IsNotSupported and decide whether a documented best-effort
// fallback applies.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Server error codes that indicate transactions are unavailable:
// 20 IllegalOperation (standalone), 51 and 263 transaction-number errors.
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err indicates the deployment cannot run
// multi-document transactions, as opposed to a transient transaction
// failure.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && notSupportedCodes[ce.Code] {
		return true
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "transaction") &&
		(strings.Contains(s, "replica set") ||
			strings.Contains(s, "session") ||
			strings.Contains(s, "illegal operation")) {
		return true
	}
	if strings.Contains(s, "session") && strings.Contains(s, "not supported") {
		return true
	}
	return false
}
