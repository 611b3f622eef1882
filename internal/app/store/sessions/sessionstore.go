// internal/app/store/sessions/sessionstore.go
package sessionstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"spedhub/internal/app/policy/schedulepolicy"
	"spedhub/internal/app/schedule"
	"spedhub/internal/app/system/txn"
	"spedhub/internal/domain/models"
)

// Store is the Mongo implementation of schedule.Store, backed by the
// schedule_sessions collection. Templates and instances share the
// collection; session_date null marks a template.
type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection("schedule_sessions"), log: logger}
}

// visibility builds the role-based read filter: everyone sees sessions they
// own; specialist-source roles additionally see sessions assigned to them as
// specialist, SEAs those assigned to them as SEA.
func visibility(v schedule.Viewer) bson.M {
	or := bson.A{bson.M{"provider_id": v.UserID}}
	switch {
	case schedulepolicy.IsSpecialistSource(v.Role):
		or = append(or, bson.M{"assigned_specialist_id": v.UserID})
	case schedulepolicy.IsSEA(v.Role):
		or = append(or, bson.M{"assigned_sea_id": v.UserID})
	}
	return bson.M{"$or": or}
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.ScheduleSession, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []models.ScheduleSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) InstancesInRange(ctx context.Context, v schedule.Viewer, start, end time.Time) ([]models.ScheduleSession, error) {
	filter := visibility(v)
	filter["session_date"] = bson.M{"$gte": start, "$lte": end}
	return s.find(ctx, filter)
}

func (s *Store) TemplatesOnWeekdays(ctx context.Context, v schedule.Viewer, weekdays []int) ([]models.ScheduleSession, error) {
	filter := visibility(v)
	filter["session_date"] = nil
	filter["day_of_week"] = bson.M{"$in": weekdays}
	return s.find(ctx, filter)
}

func (s *Store) GetSessions(ctx context.Context, ids []primitive.ObjectID) ([]models.ScheduleSession, error) {
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) InsertInstance(ctx context.Context, row models.ScheduleSession) (models.ScheduleSession, error) {
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, row); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ScheduleSession{}, schedule.ErrDuplicateSlot
		}
		return models.ScheduleSession{}, err
	}
	return row, nil
}

func (s *Store) UpdateInstance(ctx context.Context, id primitive.ObjectID, mut schedule.InstanceMutation) (models.ScheduleSession, error) {
	// Templates have session_date null, so this update can never reach a
	// template row even when given a template's id.
	filter := bson.M{"_id": id, "session_date": bson.M{"$ne": nil}}
	update := bson.M{"$set": bson.M{
		"completed_at":  mut.CompletedAt,
		"completed_by":  mut.CompletedBy,
		"session_notes": mut.SessionNotes,
		"updated_at":    time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.ScheduleSession
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ScheduleSession{}, schedule.ErrNotFound
		}
		return models.ScheduleSession{}, err
	}
	return updated, nil
}

func (s *Store) FindInstanceBySlot(ctx context.Context, providerID primitive.ObjectID, date time.Time, startTime string) (models.ScheduleSession, error) {
	filter := bson.M{
		"provider_id":  providerID,
		"session_date": date,
		"start_time":   startTime,
	}
	var row models.ScheduleSession
	if err := s.c.FindOne(ctx, filter).Decode(&row); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ScheduleSession{}, schedule.ErrNotFound
		}
		return models.ScheduleSession{}, err
	}
	return row, nil
}

func (s *Store) SetGroupByIDs(ctx context.Context, ids []primitive.ObjectID, tag *schedule.GroupTag) ([]models.ScheduleSession, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}
	// Stamping N rows is the one multi-document write in this service; run
	// it in a transaction where the topology allows.
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		_, err := s.c.UpdateMany(ctx, filter, groupUpdate(tag))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter)
}

func (s *Store) SetGroupBySlot(ctx context.Context, slot models.SlotKey, tag *schedule.GroupTag) (int64, error) {
	filter := bson.M{
		"student_id":   slot.StudentID,
		"day_of_week":  slot.DayOfWeek,
		"start_time":   slot.StartTime,
		"session_date": bson.M{"$ne": nil},
	}
	res, err := s.c.UpdateMany(ctx, filter, groupUpdate(tag))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func groupUpdate(tag *schedule.GroupTag) bson.M {
	if tag == nil {
		return bson.M{
			"$unset": bson.M{"group_id": "", "group_name": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	}
	return bson.M{"$set": bson.M{
		"group_id":   tag.ID,
		"group_name": tag.Name,
		"updated_at": time.Now().UTC(),
	}}
}

func (s *Store) DeleteInstances(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"_id":          bson.M{"$in": ids},
		"session_date": bson.M{"$ne": nil},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) FutureIncompleteInstances(ctx context.Context, from time.Time) ([]models.ScheduleSession, error) {
	return s.find(ctx, bson.M{
		"session_date": bson.M{"$gte": from},
		"completed_at": nil,
	})
}

func (s *Store) AllTemplates(ctx context.Context) ([]models.ScheduleSession, error) {
	return s.find(ctx, bson.M{"session_date": nil})
}
