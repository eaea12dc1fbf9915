package bookingRepo

import (
	"context"
	"database/sql"
	"time"

	"homeserve/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBookingRepo implements BookingRepository on Postgres.
type GormBookingRepo struct {
	db        *gorm.DB
	txTimeout time.Duration
	inTx      bool
}

// NewGormBookingRepo constructs a repository over db. Transactions are cut
// off after txTimeout.
func NewGormBookingRepo(db *gorm.DB, txTimeout time.Duration) BookingRepository {
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	return &GormBookingRepo{db: db, txTimeout: txTimeout}
}

func (r *GormBookingRepo) Transaction(ctx context.Context, fn func(tx BookingRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	ctx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormBookingRepo{db: tx, txTimeout: r.txTimeout, inTx: true})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return translate(ctx, err)
}

func (r *GormBookingRepo) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// forUpdate adds a row lock when running inside a transaction.
func (r *GormBookingRepo) forUpdate(ctx context.Context) *gorm.DB {
	db := r.conn(ctx)
	if r.inTx {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	if err := db.Where(query, args...).First(&out).Error; err != nil {
		return nil, translate(ctx, err)
	}
	return &out, nil
}

func (r *GormBookingRepo) GetService(ctx context.Context, id string) (*models.Service, error) {
	return first[models.Service](ctx, r.conn(ctx), "id = ?", id)
}

func (r *GormBookingRepo) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	return first[models.Slot](ctx, r.conn(ctx), "id = ?", id)
}

func (r *GormBookingRepo) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	return first[models.Business](ctx, r.conn(ctx), "id = ?", id)
}

// GetActivePlan returns the newest active plan of the business.
func (r *GormBookingRepo) GetActivePlan(ctx context.Context, businessID string) (*models.ProviderPlan, error) {
	return first[models.ProviderPlan](ctx, r.conn(ctx).Order("created_at DESC"), "business_id = ? AND active = ?", businessID, true)
}

func (r *GormBookingRepo) GetStaff(ctx context.Context, id string) (*models.StaffProfile, error) {
	return first[models.StaffProfile](ctx, r.forUpdate(ctx), "id = ?", id)
}

func (r *GormBookingRepo) UpdateStaffAvailability(ctx context.Context, staffID string, availability models.StaffAvailability) error {
	res := r.conn(ctx).Model(&models.StaffProfile{}).
		Where("id = ?", staffID).
		Updates(map[string]any{"availability": availability, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(ctx, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
