package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type PaymentPostgreSQL struct {
	db *gorm.DB
}

func NewPaymentPostgreSQL(db *gorm.DB) repositories.PaymentRepository {
	return &PaymentPostgreSQL{db: db}
}

func (p *PaymentPostgreSQL) Create(ctx context.Context, payment *models.Payment) error {
	err := p.db.WithContext(ctx).Omit("Learner").Create(payment).Error
	return translateError(err, "payment", payment.TransactionReference)
}

func (p *PaymentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := p.db.WithContext(ctx).Preload("Learner").First(&payment, id).Error; err != nil {
		return nil, translateError(err, "payment", id)
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := p.db.WithContext(ctx).
		Preload("Learner").
		Where("transaction_reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, translateError(err, "payment", reference)
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) GetLatestPendingByLearner(ctx context.Context, learnerID uint) (*models.Payment, error) {
	var payment models.Payment
	err := p.db.WithContext(ctx).
		Preload("Learner").
		Where("learner_id = ? AND status = ?", learnerID, models.PaymentPending).
		Order("created_at DESC, id DESC").
		First(&payment).Error
	if err != nil {
		return nil, translateError(err, "payment", learnerID)
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) List(ctx context.Context, filters models.PaymentFilters) ([]*models.Payment, int64, error) {
	var payments []*models.Payment
	var total int64

	query := p.db.WithContext(ctx).Model(&models.Payment{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.BranchID != nil {
		query = query.Where("branch_id = ?", *filters.BranchID)
	}
	if filters.LearnerID != nil {
		query = query.Where("learner_id = ?", *filters.LearnerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "payment", "list")
	}
	err := paginate(query, filters.Limit, filters.Offset).
		Preload("Learner").
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, 0, translateError(err, "payment", "list")
	}
	return payments, total, nil
}

func (p *PaymentPostgreSQL) ListByLearner(ctx context.Context, learnerID uint) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := p.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, translateError(err, "payment", learnerID)
	}
	return payments, nil
}

// Transition uses the stored status as an optimistic lock
func (p *PaymentPostgreSQL) Transition(ctx context.Context, id uint, change repositories.PaymentTransition) error {
	result := p.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(map[string]interface{}{
			"status":      change.To,
			"verified_by": change.VerifiedBy,
			"verified_at": change.VerifiedAt,
			"admin_notes": change.Notes,
			"updated_at":  change.VerifiedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "payment", id)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrStaleState
	}
	return nil
}

func (p *PaymentPostgreSQL) HasSuccessful(ctx context.Context, learnerID uint, since time.Time) (bool, error) {
	var count int64
	query := p.db.WithContext(ctx).Model(&models.Payment{}).
		Where("learner_id = ? AND status = ?", learnerID, models.PaymentSuccessful)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, translateError(err, "payment", learnerID)
	}
	return count > 0, nil
}

func (p *PaymentPostgreSQL) UpdateGateway(ctx context.Context, id uint, token, redirectURL string) error {
	err := p.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_token":        token,
			"gateway_redirect_url": redirectURL,
		}).Error
	return translateError(err, "payment", id)
}
