package models

import "time"

// Department is reference data scoping tutors, HODs and batches.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	HODID     *string   `db:"hod_id" json:"hod_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
