// internal/app/schedule/grouping.go
package schedule

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/policy/schedulepolicy"
	"spedhub/internal/app/system/metrics"
	"spedhub/internal/domain/models"
)

// ErrNotAuthorized is returned when the requester fails the delivery check
// for any session in a group/ungroup request. The rejected session ids are
// logged server-side only.
var ErrNotAuthorized = errors.New("not authorized to modify one or more of these sessions")

// ValidationError is a bad-request failure with a caller-safe message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Coordinator tags sets of sessions with a shared group identity. The
// primary write stamps the named rows; a best-effort secondary pass
// propagates the tag to durable instances matching the named templates'
// slots. Future instances inherit the tag at materialization time, so a
// failed propagation heals on its own.
type Coordinator struct {
	store Store
	log   *zap.Logger
}

func NewCoordinator(store Store, logger *zap.Logger) *Coordinator {
	return &Coordinator{store: store, log: logger}
}

// GroupSessions stamps sessionIDs (and matching live instances) with a
// shared group id and name. A new group id is generated when groupID is
// empty. Authorization is all-or-nothing: one rejected session aborts the
// whole operation before any write.
func (c *Coordinator) GroupSessions(ctx context.Context, requesterID primitive.ObjectID, sessionIDs []primitive.ObjectID, groupName, groupID string) (string, []models.ScheduleSession, error) {
	groupName = strings.TrimSpace(groupName)
	if len(sessionIDs) < 2 {
		metrics.GroupOps.WithLabelValues("group", "invalid").Inc()
		return "", nil, &ValidationError{Msg: "grouping requires at least two sessions"}
	}
	if groupName == "" {
		metrics.GroupOps.WithLabelValues("group", "invalid").Inc()
		return "", nil, &ValidationError{Msg: "group name is required"}
	}
	if groupID == "" {
		groupID = uuid.NewString()
	}

	sessions, err := c.authorize(ctx, "group", requesterID, sessionIDs)
	if err != nil {
		return "", nil, err
	}

	tag := &GroupTag{ID: groupID, Name: groupName}
	updated, err := c.store.SetGroupByIDs(ctx, sessionIDs, tag)
	if err != nil {
		metrics.GroupOps.WithLabelValues("group", "error").Inc()
		c.log.Error("group sessions: primary update failed",
			zap.String("requester", requesterID.Hex()),
			zap.String("group_id", groupID),
			zap.Error(err))
		return "", nil, err
	}

	c.propagate(ctx, sessions, tag)
	metrics.GroupOps.WithLabelValues("group", "ok").Inc()
	return groupID, updated, nil
}

// UngroupSessions clears the group tag from sessionIDs and from durable
// instances matching the named templates' slots.
func (c *Coordinator) UngroupSessions(ctx context.Context, requesterID primitive.ObjectID, sessionIDs []primitive.ObjectID) ([]models.ScheduleSession, error) {
	if len(sessionIDs) < 1 {
		metrics.GroupOps.WithLabelValues("ungroup", "invalid").Inc()
		return nil, &ValidationError{Msg: "at least one session is required"}
	}

	sessions, err := c.authorize(ctx, "ungroup", requesterID, sessionIDs)
	if err != nil {
		return nil, err
	}

	updated, err := c.store.SetGroupByIDs(ctx, sessionIDs, nil)
	if err != nil {
		metrics.GroupOps.WithLabelValues("ungroup", "error").Inc()
		c.log.Error("ungroup sessions: primary update failed",
			zap.String("requester", requesterID.Hex()),
			zap.Error(err))
		return nil, err
	}

	c.propagate(ctx, sessions, nil)
	metrics.GroupOps.WithLabelValues("ungroup", "ok").Inc()
	return updated, nil
}

// authorize fetches the named sessions and checks the delivery predicate on
// every one. Zero writes happen unless all pass.
func (c *Coordinator) authorize(ctx context.Context, op string, requesterID primitive.ObjectID, ids []primitive.ObjectID) ([]models.ScheduleSession, error) {
	sessions, err := c.store.GetSessions(ctx, ids)
	if err != nil {
		metrics.GroupOps.WithLabelValues(op, "error").Inc()
		c.log.Error("group authorize: fetch failed",
			zap.String("op", op),
			zap.String("requester", requesterID.Hex()),
			zap.Error(err))
		return nil, err
	}
	if len(sessions) != len(ids) {
		metrics.GroupOps.WithLabelValues(op, "invalid").Inc()
		return nil, &ValidationError{Msg: "one or more sessions were not found"}
	}

	var rejected []string
	for _, s := range sessions {
		if !schedulepolicy.CanDeliver(requesterID, s) {
			rejected = append(rejected, s.ID.Hex())
		}
	}
	if len(rejected) > 0 {
		metrics.GroupOps.WithLabelValues(op, "forbidden").Inc()
		c.log.Warn("group authorize: rejected sessions",
			zap.String("op", op),
			zap.String("requester", requesterID.Hex()),
			zap.Strings("session_ids", rejected))
		return nil, ErrNotAuthorized
	}
	return sessions, nil
}

// propagate stamps (or clears) the tag on durable instances matching each
// named template's slot. Failures are logged per template and do not roll
// back the primary update: the next materialization re-derives group tags
// for future instances from the templates anyway.
func (c *Coordinator) propagate(ctx context.Context, sessions []models.ScheduleSession, tag *GroupTag) {
	for _, s := range sessions {
		if !s.IsTemplate() {
			continue
		}
		if _, err := c.store.SetGroupBySlot(ctx, s.Slot(), tag); err != nil {
			c.log.Warn("group propagate: instance update failed",
				zap.String("template_id", s.ID.Hex()),
				zap.String("student", s.StudentID.Hex()),
				zap.Int("day_of_week", s.DayOfWeek),
				zap.String("start_time", s.StartTime),
				zap.Error(err))
		}
	}
}
