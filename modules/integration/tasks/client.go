package tasks

import (
	"context"
	"errors"
	"time"

	"healthtrack-api/core/config"
	"healthtrack-api/core/constants"
	"healthtrack-api/core/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Client enqueues integration tasks. It satisfies the sync engine's
// enqueuer contract.
type Client struct {
	client *asynq.Client
}

func NewClient(redisCfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}),
	}
}

// EnqueueSync schedules one background sync. An identical task already
// waiting within the staleness window is treated as already enqueued.
func (c *Client) EnqueueSync(ctx context.Context, integrationID, userID uuid.UUID, start, end *time.Time) error {
	task, err := NewSyncTask(SyncPayload{
		IntegrationID: integrationID,
		UserID:        userID,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(constants.SyncTimeout),
		asynq.Unique(constants.SyncStaleness),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Debug("Tasks:EnqueueSync:Duplicate", "integration_id", integrationID)
			return nil
		}
		return err
	}

	logger.Debug("Tasks:EnqueueSync", "task_id", info.ID, "integration_id", integrationID)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
