package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
)

func (db *Database) UpsertDeposit(ctx context.Context, deposit models.Deposit) error {
	fields := bson.D{
		{Key: "hash", Value: deposit.Hash},
		{Key: "amount", Value: deposit.Amount},
		{Key: "token_address", Value: deposit.TokenAddress},
		{Key: "token_decimals", Value: deposit.TokenDecimals},
		{Key: "token_symbol", Value: deposit.TokenSymbol},
		{Key: "address", Value: deposit.Address},
		{Key: "status", Value: deposit.Status},
	}

	if err := db.upsert(ctx, "deposits", deposit.Hash, fields); err != nil {
		return fmt.Errorf("failed to upsert deposit %s: %w", deposit.Hash, err)
	}
	return nil
}

func (db *Database) GetDeposits(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error) {
	mongoFilter := bson.D{}
	if filter.Address != "" {
		mongoFilter = append(mongoFilter, bson.E{Key: "address", Value: filter.Address})
	}

	deposits := []models.Deposit{}
	total, err := db.paginate(ctx, "deposits", mongoFilter, page, &deposits)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedResult{Items: deposits, TotalItems: total}, nil
}
