package domain

import "time"

// Entity is a loosely typed record as exchanged with the REST layer.
// The realtime components never interpret its fields beyond equality.
type Entity map[string]any

// Clone returns a shallow copy. Field values are shared, which is fine for
// the resolution flow since entities are treated as immutable snapshots.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// FieldEditor is a transient claim on a form field: one active claim per
// (UserID, FieldName) pair. Removed on stop_edit or when the room is left.
type FieldEditor struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	FieldName string    `json:"fieldName"`
	At        time.Time `json:"timestamp"`
}

type EditAction string

const (
	EditStart EditAction = "start_edit"
	EditStop  EditAction = "stop_edit"
)

// FieldEditPayload is the wire payload on the form_field_edit topic.
type FieldEditPayload struct {
	UserID    string     `json:"userId" validate:"required"`
	UserName  string     `json:"userName"`
	FieldName string     `json:"fieldName" validate:"required"`
	Action    EditAction `json:"action" validate:"required,oneof=start_edit stop_edit"`
}

// FormChangePayload is the fire-and-forget value broadcast on form_change.
// Receivers log it; values are only merged through conflict resolution.
type FormChangePayload struct {
	UserID    string `json:"userId"`
	FieldName string `json:"fieldName" validate:"required"`
	Value     any    `json:"value"`
}

// ConflictRecord is the input to conflict resolution: two divergent versions
// of the same entity plus the set of fields where they differ. Not persisted.
type ConflictRecord struct {
	Local            Entity
	Remote           Entity
	ConflictedFields []string
}

// Resolution tags the provenance of a resolved entity.
type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionRemote Resolution = "remote"
	ResolutionMerged Resolution = "merged"
)
