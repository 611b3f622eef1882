// internal/app/system/txn/txn.go
//
// Package txn wraps multi-document writes in a Mongo transaction when the
// deployment supports one (replica set / mongos) and falls back to running
// the function directly on standalone servers, where transactions are not
// available. Local dev and CI commonly run standalone mongod.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn transactionally if possible. On topologies without
// transaction support it logs once at debug level and runs fn without one;
// callers must therefore keep fn idempotent or tolerate partial writes on
// standalone deployments.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Debug("transactions unsupported; running without", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Debug("transactions unsupported; running without", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions at all (as opposed to a transaction that failed). Covers the
// known server codes plus message heuristics for drivers/proxies that wrap
// the originals.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "transaction") {
		if strings.Contains(s, "replica set") ||
			strings.Contains(s, "session") ||
			strings.Contains(s, "illegal operation") {
			return true
		}
	}
	return strings.Contains(s, "session") && strings.Contains(s, "not supported")
}
