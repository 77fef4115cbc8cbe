package audit

import (
	"context"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BestEffort writes entries and logs failures instead of returning them.
type BestEffort struct {
	repo Repository
	log  logrus.FieldLogger
}

func NewBestEffort(repo Repository, log logrus.FieldLogger) *BestEffort {
	return &BestEffort{repo: repo, log: log.WithField("module", "audit")}
}

func (b *BestEffort) Log(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := b.repo.Record(ctx, &entry); err != nil {
		logging.FromContext(ctx, b.log).WithError(err).WithFields(logrus.Fields{
			"shop_id":     entry.ShopID,
			"actor_id":    entry.ActorID,
			"target_type": entry.TargetType,
			"target_id":   entry.TargetID,
			"action":      entry.Action,
		}).Warn("audit write failed")
	}
}
