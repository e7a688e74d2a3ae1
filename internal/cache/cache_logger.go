package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ExamKey is the cache key of an exam payload with its linked questions
func ExamKey(examID uint) string {
	return fmt.Sprintf("details:%d", examID)
}

// InvalidateExamCache drops the cached payload of an exam
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Exam, ExamKey(examID))
}

// InvalidateAllExams drops every cached exam payload, used when a bank
// question changes and the exams linking it are not known
func InvalidateAllExams(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Exam, "details:*")
}

// InvalidateStats drops cached dashboard counters
func InvalidateStats(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}
