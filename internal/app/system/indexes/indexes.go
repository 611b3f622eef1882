// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent; errors
are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureScheduleSessions(ctx, db); err != nil {
		problems = append(problems, "schedule_sessions: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureScheduleSessions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("schedule_sessions")

	models := []mongo.IndexModel{
		// One durable instance per provider/date/start slot. This unique
		// index is the only concurrency mechanism for duplicate promotion:
		// the losing insert surfaces E11000 and is converted to an update.
		// Partial on session_date being a date so templates (null) are
		// exempt.
		{
			Keys: bson.D{
				{Key: "provider_id", Value: 1},
				{Key: "session_date", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_provider_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"session_date": bson.M{"$type": "date"}}),
		},
		// Structural instance→template lookup: (student, day_of_week,
		// start_time) is the slot key used for orphan detection and group
		// propagation. Not unique — there is deliberately no FK.
		{
			Keys: bson.D{
				{Key: "student_id", Value: 1},
				{Key: "day_of_week", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().SetName("slot_lookup"),
		},
		// Calendar range reads.
		{
			Keys:    bson.D{{Key: "session_date", Value: 1}},
			Options: options.Index().SetName("session_date"),
		},
		// Group membership queries.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}},
			Options: options.Index().SetName("group_id").SetSparse(true),
		},
	}

	_, err := c.Indexes().CreateMany(ctx, models)
	if err != nil && isOptionsConflictErr(err) {
		// Same keys already exist under a different name or options; leave
		// the existing definitions in place rather than failing startup.
		return nil
	}
	return err
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}
