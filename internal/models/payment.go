package models

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentSuccessful, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return true
	}
	return false
}

const PaymentMethodGateway = "gateway"

type Payment struct {
	ID                   uint          `json:"id" gorm:"primaryKey"`
	LearnerID            uint          `json:"learner_id" gorm:"not null;index"`
	Amount               float64       `json:"amount" gorm:"not null"`
	Currency             string        `json:"currency" gorm:"not null;size:3;default:NGN"`
	Status               PaymentStatus `json:"status" gorm:"not null;default:pending;size:20;index"`
	Description          string        `json:"description" gorm:"type:text"`
	PaymentMethod        string        `json:"payment_method" gorm:"size:30"`
	TransactionReference string        `json:"transaction_reference" gorm:"uniqueIndex;not null;size:100"`
	BranchID             uint          `json:"branch_id" gorm:"not null;index"`
	ClassLevel           *string       `json:"class_level" gorm:"size:20"`
	SubClassLevel        *string       `json:"sub_class_level" gorm:"size:20"`

	VerifiedBy *uint      `json:"verified_by"`
	VerifiedAt *time.Time `json:"verified_at"`
	AdminNotes *string    `json:"admin_notes" gorm:"type:text"`

	GatewayToken       *string `json:"gateway_token,omitempty" gorm:"size:255"`
	GatewayRedirectURL *string `json:"gateway_redirect_url,omitempty" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Learner *Account `json:"learner,omitempty" gorm:"foreignKey:LearnerID"`
}

func (Payment) TableName() string {
	return "payments"
}
