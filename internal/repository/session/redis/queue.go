package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/audiolyze/server/internal/repository/session"
)

func (r repo) getQueueKey(sessionID string) string {
	return "session:" + sessionID + ":queue"
}

func (r repo) getQueueItemKey(sessionID, itemID string) string {
	return "session:" + sessionID + ":queue:" + itemID
}

func (r repo) SetQueueItem(ctx context.Context, params *session.SetQueueItemParams) error {
	item := session.QueueItem{
		Title:     params.Title,
		Source:    params.Source,
		URL:       params.URL,
		Status:    params.Status,
		AddedByID: params.AddedByID,
	}
	itemKey := r.getQueueItemKey(params.SessionID, params.ItemID)
	if err := r.rc.HSet(ctx, itemKey, item).Err(); err != nil {
		return fmt.Errorf("failed to set queue item: %w", err)
	}

	queueKey := r.getQueueKey(params.SessionID)
	r.addWithIncrement(ctx, r.rc, queueKey, params.ItemID)

	pipe := r.rc.TxPipeline()
	pipe.Expire(ctx, itemKey, r.expireDuration)
	pipe.Expire(ctx, queueKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to expire queue keys: %w", err)
	}

	return nil
}

func (r repo) GetQueueItem(ctx context.Context, sessionID, itemID string) (session.QueueItem, error) {
	itemKey := r.getQueueItemKey(sessionID, itemID)
	res, err := r.rc.Exists(ctx, itemKey).Result()
	if err != nil {
		return session.QueueItem{}, fmt.Errorf("failed to check if queue item exists: %w", err)
	}
	if res == 0 {
		return session.QueueItem{}, session.ErrQueueItemNotFound
	}

	var item session.QueueItem
	if err := r.rc.HGetAll(ctx, itemKey).Scan(&item); err != nil {
		return session.QueueItem{}, fmt.Errorf("failed to get queue item: %w", err)
	}

	return item, nil
}

func (r repo) RemoveQueueItem(ctx context.Context, params *session.RemoveQueueItemParams) error {
	removed, err := r.rc.ZRem(ctx, r.getQueueKey(params.SessionID), params.ItemID).Result()
	if err != nil {
		return fmt.Errorf("failed to remove queue item from list: %w", err)
	}
	if removed == 0 {
		return session.ErrQueueItemNotFound
	}

	if err := r.rc.Del(ctx, r.getQueueItemKey(params.SessionID, params.ItemID)).Err(); err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
	}

	return nil
}

func (r repo) UpdateQueueItemStatus(ctx context.Context, params *session.UpdateQueueItemStatusParams) error {
	itemKey := r.getQueueItemKey(params.SessionID, params.ItemID)
	cmd := r.rc.Exists(ctx, itemKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return session.ErrQueueItemNotFound
	}

	if err := r.rc.HSet(ctx, itemKey, "status", params.Status).Err(); err != nil {
		return fmt.Errorf("failed to update queue item status: %w", err)
	}

	return nil
}

func (r repo) GetQueueItemIDs(ctx context.Context, sessionID string) ([]string, error) {
	queueKey := r.getQueueKey(sessionID)
	itemIDs, err := r.rc.ZRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item ids: %w", err)
	}

	r.rc.Expire(ctx, queueKey, r.expireDuration)

	return itemIDs, nil
}

// SetQueueOrder rewrites the whole ordering with consecutive scores. Callers
// pass the complete id list, head included, so one ZADD replaces the old
// ordering in place.
func (r repo) SetQueueOrder(ctx context.Context, params *session.SetQueueOrderParams) error {
	queueKey := r.getQueueKey(params.SessionID)

	members := make([]redis.Z, 0, len(params.ItemIDs))
	for i, itemID := range params.ItemIDs {
		members = append(members, redis.Z{Score: float64(i + 1), Member: itemID})
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, queueKey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, queueKey, members...)
	}
	pipe.Expire(ctx, queueKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set queue order: %w", err)
	}

	return nil
}
