package recordsRepo

import (
	"context"

	"homeserve/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// EventLogRepository is the append-only booking event log.
type EventLogRepository interface {
	Append(ctx context.Context, event models.BookingEvent) (string, error)
	GetByID(ctx context.Context, id string) (*models.BookingEvent, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.BookingEvent, error)
	ListByKind(ctx context.Context, kind models.EventKind, limit int64) ([]models.BookingEvent, error)
}

type mongoEventLogRepo struct {
	coll *mongo.Collection
}

// NewMongoEventLogRepo returns an EventLogRepository over the given database.
func NewMongoEventLogRepo(db *mongo.Database) EventLogRepository {
	return &mongoEventLogRepo{
		coll: db.Collection("booking_events"),
	}
}
