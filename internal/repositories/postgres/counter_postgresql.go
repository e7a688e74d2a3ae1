package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/repositories"
)

type CounterPostgreSQL struct {
	db *gorm.DB
}

func NewCounterPostgreSQL(db *gorm.DB) repositories.CounterRepository {
	return &CounterPostgreSQL{db: db}
}

// nextSequenceSQL creates the row at 1 or bumps it in a single statement.
// Concurrent callers on the same name serialise on the row lock.
const nextSequenceSQL = `
INSERT INTO counters (name, value, branch_id, year, created_at, updated_at)
VALUES (?, 1, ?, ?, NOW(), NOW())
ON CONFLICT (name) DO UPDATE
SET value = counters.value + 1, updated_at = NOW()
RETURNING value`

func (c *CounterPostgreSQL) Next(ctx context.Context, name string, branchID uint, year int) (int64, error) {
	var value int64
	if err := c.db.WithContext(ctx).Raw(nextSequenceSQL, name, branchID, year).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("counter %s returned no value", name)
	}
	return value, nil
}
