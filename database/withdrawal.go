package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

// UpsertWithdrawal writes the canonical fields of withdrawal. recent_status is
// owned by the status watcher and is never written here.
func (db *Database) UpsertWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error {
	fields := bson.D{
		{Key: "hash", Value: withdrawal.Hash},
		{Key: "l1_hash", Value: withdrawal.L1Hash},
		{Key: "amount", Value: withdrawal.Amount},
		{Key: "token_address", Value: withdrawal.TokenAddress},
		{Key: "token_decimals", Value: withdrawal.TokenDecimals},
		{Key: "token_symbol", Value: withdrawal.TokenSymbol},
		{Key: "address", Value: withdrawal.Address},
		{Key: "status", Value: withdrawal.Status},
	}

	if err := db.upsert(ctx, "withdrawals", withdrawal.Hash, fields); err != nil {
		return fmt.Errorf("failed to upsert withdrawal %s: %w", withdrawal.Hash, err)
	}
	return nil
}

// unfinishedFilter matches withdrawals whose latest known stage is not
// Relayed: the observed stage when set, the indexer status otherwise.
// {recent_status: nil} also matches documents without the field.
func unfinishedFilter() bson.E {
	return bson.E{Key: "$or", Value: bson.A{
		bson.D{
			{Key: "recent_status", Value: nil},
			{Key: "status", Value: bson.D{{Key: "$ne", Value: types.RelayedStatus}}},
		},
		bson.D{{Key: "recent_status", Value: bson.D{{Key: "$nin", Value: bson.A{nil, types.RelayedStatus}}}}},
	}}
}

// GetPendingWithdrawals returns the unfinished withdrawals. Once the watcher
// records Relayed a withdrawal is never selected again.
func (db *Database) GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	filter := bson.D{unfinishedFilter()}

	cursor, err := db.collection("withdrawals").Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending withdrawals: %w", err)
	}
	defer cursor.Close(ctx)

	withdrawals := []models.Withdrawal{}
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, fmt.Errorf("failed to decode pending withdrawals: %w", err)
	}

	return withdrawals, nil
}

func (db *Database) UpdateWithdrawalRecentStatus(ctx context.Context, hash string, status string) error {
	filter := bson.D{{Key: "hash", Value: hash}}
	update := bson.D{{
		Key: "$set",
		Value: bson.D{
			{Key: "recent_status", Value: status},
			{Key: "updated_at", Value: db.now()},
		},
	}}

	result, err := db.collection("withdrawals").UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal recent status: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no withdrawal found with hash: %s", hash)
	}

	return nil
}

func (db *Database) GetWithdrawals(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error) {
	mongoFilter := bson.D{}
	if filter.Address != "" {
		mongoFilter = append(mongoFilter, bson.E{Key: "address", Value: filter.Address})
	}
	if filter.Unfinished {
		mongoFilter = append(mongoFilter, unfinishedFilter())
	}

	withdrawals := []models.Withdrawal{}
	total, err := db.paginate(ctx, "withdrawals", mongoFilter, page, &withdrawals)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedResult{Items: withdrawals, TotalItems: total}, nil
}
