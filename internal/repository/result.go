package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
)

// resultTTL bounds how long an archived result answers late queries.
const resultTTL = 24 * time.Hour

type ResultRepository interface {
	Save(ctx context.Context, result *entity.MatchResult) error
	GetBySessionID(ctx context.Context, sessionID string) (*entity.MatchResult, error)
}

type dbResult struct {
	client *redis.Client
}

func NewResultRepository(client *redis.Client) ResultRepository {
	return &dbResult{
		client: client,
	}
}

func (that *dbResult) Save(ctx context.Context, result *entity.MatchResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	resultKey := "result:" + result.SessionID
	if err = that.client.Set(ctx, resultKey, resultJSON, resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to set result: %w", err)
	}

	return nil
}

func (that *dbResult) GetBySessionID(ctx context.Context, sessionID string) (*entity.MatchResult, error) {
	resultKey := "result:" + sessionID

	response, err := that.client.Get(ctx, resultKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrResultNotFound, sessionID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get result by session ID: %w", err)
	}

	var result entity.MatchResult
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}
