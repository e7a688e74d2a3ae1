package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// translateError maps gorm errors onto repository errors
func translateError(err error, entity string, key interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.NewNotFoundError(entity, key)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", entity, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", entity, err)
}

// paginate applies limit/offset with sane bounds
func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

// likePattern escapes a user supplied search term for ILIKE
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}
