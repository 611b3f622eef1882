// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/schedule"
	"spedhub/internal/domain/models"
)

// OrphanSweepJob re-detects and deletes orphaned instances across all
// providers. The request-path queue is bounded and lossy, so this sweep is
// the backstop that guarantees orphans are eventually removed even when
// nobody loads the affected calendar again. Completed and past instances
// are never touched.
func OrphanSweepJob(store schedule.Store, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "orphan-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			today := schedule.DateOnly(time.Now())

			instances, err := store.FutureIncompleteInstances(ctx, today)
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				return nil
			}
			templates, err := store.AllTemplates(ctx)
			if err != nil {
				return err
			}

			slots := make(map[models.SlotKey]struct{}, len(templates))
			for _, t := range templates {
				slots[t.Slot()] = struct{}{}
			}

			var orphans []primitive.ObjectID
			for _, inst := range instances {
				if _, ok := slots[inst.Slot()]; !ok {
					orphans = append(orphans, inst.ID)
				}
			}
			if len(orphans) == 0 {
				return nil
			}

			n, err := store.DeleteInstances(ctx, orphans)
			if err != nil {
				return err
			}
			logger.Info("orphan sweep: deleted instances",
				zap.Int64("deleted", n),
				zap.Int("detected", len(orphans)))
			return nil
		},
	}
}
