package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
)

// Store is implemented by the Mongo and SQL databases.
type Store interface {
	UpsertDeposit(ctx context.Context, deposit models.Deposit) error
	UpsertWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error
	GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
	UpdateWithdrawalRecentStatus(ctx context.Context, hash string, status string) error
	GetDeposits(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error)
	GetWithdrawals(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error)
	Close(ctx context.Context) error
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type DatabaseOpts struct {
	Driver       string
	URI          string
	DatabaseName string
	Logger       *slog.Logger
}

// Open connects to the configured engine and prepares its schema.
func Open(ctx context.Context, opts DatabaseOpts) (Store, error) {
	switch opts.Driver {
	case "", DriverMongo:
		db, err := NewDatabase(opts)
		if err != nil {
			return nil, err
		}
		if err := db.CreateIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create database indexes: %w", err)
		}
		return db, nil
	case DriverPostgres:
		db, err := NewPostgres(opts)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Database is the Mongo backed store.
type Database struct {
	client       *mongo.Client
	databaseName string
	logger       *slog.Logger
	now          func() time.Time
}

var _ Store = &Database{}

const defaultTimeout = 10 * time.Second

func NewDatabase(opts DatabaseOpts) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(100).  // Adjust based on your needs
		SetMinPoolSize(10).   // Maintain minimum connections
		SetMaxConnecting(10). // Limit concurrent connection attempts
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newDatabase(client, opts.DatabaseName, opts.Logger), nil
}

func newDatabase(client *mongo.Client, name string, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{
		client:       client,
		databaseName: name,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.databaseName).Collection(name)
}

func (db *Database) CreateIndexes(ctx context.Context) error {
	// Deposits collection indexes
	_, err := db.collection("deposits").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "address", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create deposits indexes: %w", err)
	}

	// Withdrawals collection indexes
	_, err = db.collection("withdrawals").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "address", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "recent_status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawals indexes: %w", err)
	}

	return nil
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// upsert writes fields under $set and stamps created_at only on insert, so a
// re-run refreshes canonical fields without touching creation time or fields
// owned by other writers.
func (db *Database) upsert(ctx context.Context, coll string, hash string, fields bson.D) error {
	now := db.now()
	update := bson.D{
		{Key: "$set", Value: append(fields, bson.E{Key: "updated_at", Value: now})},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}

	_, err := db.collection(coll).UpdateOne(ctx,
		bson.D{{Key: "hash", Value: hash}},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (db *Database) paginate(ctx context.Context, coll string, filter bson.D, page models.Page, results interface{}) (int64, error) {
	collection := db.collection(coll)

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to get total count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "hash", Value: 1}}).
		SetSkip(page.Offset).
		SetLimit(page.Limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find %s: %w", coll, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", coll, err)
	}

	return total, nil
}
