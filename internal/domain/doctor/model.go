package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table. AccountID is set when the doctor has
// registered a login; at most one account may be linked.
type Doctor struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	AccountID      *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	Specialization string     `db:"specialization" json:"specialization"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
