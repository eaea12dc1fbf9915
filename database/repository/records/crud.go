package recordsRepo

import (
	"context"
	"errors"
	"fmt"

	"homeserve/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEventNotFound is returned when no event matches.
var ErrEventNotFound = errors.New("event not found")

// Append validates the event's variant and inserts it, returning its ID.
func (r *mongoEventLogRepo) Append(ctx context.Context, event models.BookingEvent) (string, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if _, err := event.Payload(); err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return "", err
	}
	return event.ID, nil
}

// GetByID returns an event by its ID.
func (r *mongoEventLogRepo) GetByID(ctx context.Context, id string) (*models.BookingEvent, error) {
	var event models.BookingEvent
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByBooking returns every event touching a booking, oldest first.
func (r *mongoEventLogRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.BookingEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}})
	return r.find(ctx, bson.M{"bookingIds": bookingID}, opts)
}

// ListByKind returns the newest events of one kind, e.g. rejected settlements awaiting refund.
func (r *mongoEventLogRepo) ListByKind(ctx context.Context, kind models.EventKind, limit int64) ([]models.BookingEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, bson.M{"kind": kind}, opts)
}

func (r *mongoEventLogRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.BookingEvent, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.BookingEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
