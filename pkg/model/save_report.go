package model

import "time"

type SaveAction string

const (
	SaveActionCreate SaveAction = "create"
	SaveActionUpdate SaveAction = "update"
)

// SlotOutcome is the result of one remote call issued while saving slots.
type SlotOutcome struct {
	SlotID      int64      `json:"slot_id" bson:"slot_id"`
	LocalTime   string     `json:"local_time" bson:"local_time"`
	Action      SaveAction `json:"action" bson:"action"`
	IsAvailable bool       `json:"is_available" bson:"is_available"`
	Succeeded   bool       `json:"succeeded" bson:"succeeded"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty"`
}

type SaveReport struct {
	ID        string        `json:"id" bson:"_id"`
	Subject   string        `json:"subject" bson:"subject"`
	Date      string        `json:"date" bson:"date"`
	Outcomes  []SlotOutcome `json:"outcomes" bson:"outcomes"`
	Succeeded int           `json:"succeeded" bson:"succeeded"`
	Failed    int           `json:"failed" bson:"failed"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

func (r *SaveReport) OK() bool {
	return r.Failed == 0
}

// FailedIDs lists the identifiers whose call failed. Synthetic identifiers
// are included as-is so the caller can match them to local slots.
func (r *SaveReport) FailedIDs() []int64 {
	ids := make([]int64, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			ids = append(ids, o.SlotID)
		}
	}
	return ids
}
