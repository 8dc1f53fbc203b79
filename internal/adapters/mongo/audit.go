package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/ticket-checkout/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID               string    `bson:"_id"`
	Action           string    `bson:"action"`
	PaymentReference string    `bson:"payment_reference"`
	Timestamp        time.Time `bson:"timestamp"`
	Data             bson.M    `bson:"data"`
}

// LogEvent stores one audit entry. id is the event's dedupe key, so a
// redelivered event overwrites its earlier entry instead of duplicating it.
func (a *AuditLogger) LogEvent(ctx context.Context, id, action, paymentReference string, data map[string]interface{}) error {
	log := AuditLog{
		ID:               id,
		Action:           action,
		PaymentReference: paymentReference,
		Timestamp:        time.Now().UTC(),
		Data:             bson.M(data),
	}
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": id}, log, options.Replace().SetUpsert(true))
	if err != nil {
		a.logger.WithField("action", action).Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) FindByReference(ctx context.Context, paymentReference string) ([]AuditLog, error) {
	cur, err := a.coll.Find(ctx, bson.M{"payment_reference": paymentReference},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var logs []AuditLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
