package domain

import "time"

// BillStatus is the bill state machine: IN_PROGRESS -> READY -> PAID on the
// happy path, IN_PROGRESS -> CANCELLED (or deletion) on abandonment.
type BillStatus string

const (
	BillInProgress BillStatus = "IN_PROGRESS"
	BillReady      BillStatus = "READY"
	BillPaid       BillStatus = "PAID"
	BillCancelled  BillStatus = "CANCELLED"
)

// PaymentMethod is recorded when a bill is paid; PENDING until then.
type PaymentMethod string

const (
	PaymentPending PaymentMethod = "PENDING"
	PaymentCash    PaymentMethod = "CASH"
	PaymentCard    PaymentMethod = "CARD"
)

// Bill is the single running-total ledger entry per principal. At most one
// IN_PROGRESS bill exists per username; a bill whose total collapses to zero
// or below is deleted rather than kept open at zero.
type Bill struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	CartRef       string        `json:"cartRef,omitempty"`
	Total         float64       `json:"total"`
	Status        BillStatus    `json:"status"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	ApprovedBy    string        `json:"approvedBy,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
