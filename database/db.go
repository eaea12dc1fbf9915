package database

import (
	"context"
	"log"
	"time"

	"homeserve/config"
	"homeserve/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// DB is the global Postgres handle holding every booking-state table.
	DB *gorm.DB
	// MongoClient is the global MongoDB client instance.
	MongoClient *mongo.Client
)

// InitDB opens Postgres and MongoDB and migrates the relational schema.
func InitDB() {
	InitPostgres()
	InitMongo()
	if err := Migrate(DB); err != nil {
		log.Fatalf("failed to migrate Postgres schema: %v", err)
	}
}

// InitPostgres connects gorm to DATABASE_URL.
func InitPostgres() {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if config.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(config.AppConfig.DatabaseURL), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get Postgres handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}
	DB = db
	log.Println("Connected to Postgres successfully!")
}

// InitMongo connects the event-log store.
func InitMongo() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.AppConfig.MongoURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}
	MongoClient = client
	log.Println("Connected to MongoDB successfully!")
}

// Migrate creates the tables this service writes and the partial unique
// indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Business{},
		&models.Service{},
		&models.Slot{},
		&models.ProviderPlan{},
		&models.StaffProfile{},
		&models.DeviceToken{},
		&models.Booking{},
		&models.PaymentRecord{},
		&models.Cancellation{},
		&models.StaffAssignment{},
		&models.StaffPayment{},
	); err != nil {
		return err
	}

	stmts := []string{
		// one live booking per customer per (service, slot, date)
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active_customer_slot
			ON bookings (customer_id, service_id, slot_id, date)
			WHERE booking_status <> 'CANCELLED'`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_slot_key
			ON bookings (service_id, slot_id, date, booking_status)`,
		// at most one PENDING/ACCEPTED assignment per booking
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_staff_assignments_active
			ON staff_assignments (booking_id)
			WHERE status IN ('PENDING', 'ACCEPTED')`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close releases both datastores.
func Close(ctx context.Context) {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if MongoClient != nil {
		_ = MongoClient.Disconnect(ctx)
	}
}
