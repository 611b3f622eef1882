// internal/app/schedule/ref.go
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ephemeralPrefix marks the wire form of a not-yet-persisted instance id.
const ephemeralPrefix = "virtual:"

// ErrBadInstanceRef is returned by ParseInstanceRef for ids that are neither
// a durable object id nor a well-formed ephemeral ref.
var ErrBadInstanceRef = errors.New("malformed session instance id")

// InstanceRef identifies a calendar instance. Exactly one arm is set:
// a durable ref carries the stored row's id; an ephemeral ref carries the
// template id and concrete date the instance was expanded from. Ephemeral
// refs are process-local and must never be written to storage as-is — the
// persister promotes them to durable rows instead.
type InstanceRef struct {
	id         primitive.ObjectID
	templateID primitive.ObjectID
	date       time.Time
}

// DurableRef makes a ref for a stored instance row.
func DurableRef(id primitive.ObjectID) InstanceRef {
	return InstanceRef{id: id}
}

// EphemeralRef makes a ref for a virtual instance expanded from a template
// for a concrete date.
func EphemeralRef(templateID primitive.ObjectID, date time.Time) InstanceRef {
	return InstanceRef{templateID: templateID, date: DateOnly(date)}
}

// IsEphemeral reports whether the ref names a not-yet-persisted instance.
func (r InstanceRef) IsEphemeral() bool { return r.id.IsZero() }

// DurableID returns the stored row id, or false for ephemeral refs.
func (r InstanceRef) DurableID() (primitive.ObjectID, bool) {
	if r.id.IsZero() {
		return primitive.NilObjectID, false
	}
	return r.id, true
}

// Template returns the source template id and date, or false for durable refs.
func (r InstanceRef) Template() (primitive.ObjectID, time.Time, bool) {
	if !r.IsEphemeral() {
		return primitive.NilObjectID, time.Time{}, false
	}
	return r.templateID, r.date, true
}

// String is the wire form: a bare hex object id for durable refs,
// "virtual:<templateID>:<YYYY-MM-DD>" for ephemeral ones.
func (r InstanceRef) String() string {
	if id, ok := r.DurableID(); ok {
		return id.Hex()
	}
	return fmt.Sprintf("%s%s:%s", ephemeralPrefix, r.templateID.Hex(), r.date.Format("2006-01-02"))
}

// ParseInstanceRef parses the wire form produced by String.
func ParseInstanceRef(s string) (InstanceRef, error) {
	if rest, ok := strings.CutPrefix(s, ephemeralPrefix); ok {
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return InstanceRef{}, ErrBadInstanceRef
		}
		tid, err := primitive.ObjectIDFromHex(parts[0])
		if err != nil {
			return InstanceRef{}, ErrBadInstanceRef
		}
		date, err := time.ParseInLocation("2006-01-02", parts[1], time.UTC)
		if err != nil {
			return InstanceRef{}, ErrBadInstanceRef
		}
		return EphemeralRef(tid, date), nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return InstanceRef{}, ErrBadInstanceRef
	}
	return DurableRef(id), nil
}
