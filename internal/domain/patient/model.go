package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. EncryptedHistory is opaque ciphertext;
// plaintext history exists only transiently inside the history workflows.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	AccountID        *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
	Name             string     `db:"name" json:"name"`
	Age              int        `db:"age" json:"age"`
	Address          *string    `db:"address" json:"address,omitempty"`
	Contact          string     `db:"contact" json:"contact"`
	EncryptedHistory string     `db:"encrypted_history" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
