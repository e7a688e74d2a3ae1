package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/gateway"
	"github.com/Talent-1/cbt-service/internal/repositories"
	"github.com/Talent-1/cbt-service/internal/storage"
	"github.com/Talent-1/cbt-service/internal/validator"
)

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Logger    *slog.Logger
	Validator *validator.Validator
	Policy    *access.Policy
	Tokens    TokenIssuer
	Publisher events.EventPublisher
	Gateway   gateway.PaymentGateway
	Images    storage.ImageStore
	Metrics   MetricsRecorder
	Now       func() time.Time
}

// withDefaults fills optional collaborators
func (d Dependencies) withDefaults() Dependencies {
	if d.Cache == nil {
		d.Cache = cache.NewCacheManager(nil)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Policy == nil {
		d.Policy = access.DefaultPolicy()
	}
	if d.Gateway == nil {
		d.Gateway = gateway.NoopGateway{}
	}
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// publishEvent is fire-and-log: a bus failure never fails the request
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		logger.Warn("Failed to publish event", "type", eventType, "error", err)
	}
}

func derefUint(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
