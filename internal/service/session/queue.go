package session

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

type QueueAddParams struct {
	MemberID string
	Title    string
	Source   string
	URL      string
}

type QueueResponse struct {
	Queue       []protocol.QueueItem
	Suggestions []protocol.Suggestion
	MemberIDs   []string
	// NextItem is set when the removal of the playing item forced an advance.
	NextItem *protocol.QueueItem
}

func (s *service) QueueAdd(ctx context.Context, params *QueueAddParams) (QueueResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return QueueResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return QueueResponse{}, err
	}

	if err := s.sessionRepo.SetQueueItem(ctx, &session.SetQueueItemParams{
		SessionID: sessionID,
		ItemID:    newID(),
		Title:     truncate(params.Title, queueTitleLimit),
		Source:    params.Source,
		URL:       params.URL,
		Status:    session.QueueStatusReady,
		AddedByID: params.MemberID,
	}); err != nil {
		return QueueResponse{}, fmt.Errorf("failed to set queue item: %w", err)
	}

	return s.queueChanged(ctx, sessionID)
}

type QueueRemoveParams struct {
	MemberID string
	ItemID   string
}

func (s *service) QueueRemove(ctx context.Context, params *QueueRemoveParams) (QueueResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return QueueResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return QueueResponse{}, err
	}

	item, err := s.sessionRepo.GetQueueItem(ctx, sessionID, params.ItemID)
	if err != nil {
		if err == session.ErrQueueItemNotFound {
			return QueueResponse{}, ErrQueueItemNotFound
		}

		return QueueResponse{}, err
	}

	if err := s.sessionRepo.RemoveQueueItem(ctx, &session.RemoveQueueItemParams{
		SessionID: sessionID,
		ItemID:    params.ItemID,
	}); err != nil {
		return QueueResponse{}, fmt.Errorf("failed to remove queue item: %w", err)
	}

	resp, err := s.queueChanged(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, err
	}

	// removing the playing item hands playback to the next unplayed one
	if item.Status == session.QueueStatusPlaying {
		next, err := s.advanceQueue(ctx, sessionID)
		if err != nil {
			return QueueResponse{}, err
		}
		resp.NextItem = next

		queue, err := s.getQueue(ctx, sessionID)
		if err != nil {
			return QueueResponse{}, err
		}
		resp.Queue = queue
	}

	return resp, nil
}

type QueueReorderParams struct {
	MemberID  string
	TailOrder []string
}

// QueueReorder rearranges the unplayed tail of the queue. The first
// LockedHeadSize unplayed items are pinned: the submitted order must be a
// permutation of exactly the items behind them.
func (s *service) QueueReorder(ctx context.Context, params *QueueReorderParams) (QueueResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return QueueResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return QueueResponse{}, err
	}

	itemIDs, err := s.sessionRepo.GetQueueItemIDs(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, fmt.Errorf("failed to get queue item ids: %w", err)
	}

	pinned := make([]string, 0, len(itemIDs))
	tail := make([]string, 0, len(itemIDs))
	unplayed := 0
	for _, itemID := range itemIDs {
		item, err := s.sessionRepo.GetQueueItem(ctx, sessionID, itemID)
		if err != nil {
			return QueueResponse{}, fmt.Errorf("failed to get queue item: %w", err)
		}

		if item.Status == session.QueueStatusPlayed {
			pinned = append(pinned, itemID)
			continue
		}

		unplayed++
		if unplayed <= s.config.LockedHeadSize {
			pinned = append(pinned, itemID)
		} else {
			tail = append(tail, itemID)
		}
	}

	if !isPermutation(tail, params.TailOrder) {
		return QueueResponse{}, ErrInvalidOrder
	}

	if err := s.sessionRepo.SetQueueOrder(ctx, &session.SetQueueOrderParams{
		SessionID: sessionID,
		ItemIDs:   append(pinned, params.TailOrder...),
	}); err != nil {
		return QueueResponse{}, fmt.Errorf("failed to set queue order: %w", err)
	}

	return s.queueChanged(ctx, sessionID)
}

type QueueAdvanceParams struct {
	MemberID string
}

func (s *service) QueueAdvance(ctx context.Context, params *QueueAdvanceParams) (QueueResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return QueueResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return QueueResponse{}, err
	}

	next, err := s.advanceQueue(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, err
	}

	resp, err := s.queueChanged(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, err
	}
	resp.NextItem = next

	return resp, nil
}

// advanceQueue retires the playing item and promotes the first unplayed one.
func (s *service) advanceQueue(ctx context.Context, sessionID string) (*protocol.QueueItem, error) {
	itemIDs, err := s.sessionRepo.GetQueueItemIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item ids: %w", err)
	}

	var next *protocol.QueueItem
	for i, itemID := range itemIDs {
		item, err := s.sessionRepo.GetQueueItem(ctx, sessionID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get queue item: %w", err)
		}

		switch item.Status {
		case session.QueueStatusPlaying:
			if err := s.sessionRepo.UpdateQueueItemStatus(ctx, &session.UpdateQueueItemStatusParams{
				SessionID: sessionID,
				ItemID:    itemID,
				Status:    session.QueueStatusPlayed,
			}); err != nil {
				return nil, fmt.Errorf("failed to retire queue item: %w", err)
			}
		case session.QueueStatusPlayed:
		default:
			if next != nil {
				continue
			}

			if err := s.sessionRepo.UpdateQueueItemStatus(ctx, &session.UpdateQueueItemStatusParams{
				SessionID: sessionID,
				ItemID:    itemID,
				Status:    session.QueueStatusPlaying,
			}); err != nil {
				return nil, fmt.Errorf("failed to promote queue item: %w", err)
			}

			next = &protocol.QueueItem{
				ID:        itemID,
				Title:     item.Title,
				Source:    item.Source,
				URL:       item.URL,
				Status:    session.QueueStatusPlaying,
				AddedByID: item.AddedByID,
				Position:  i,
			}
		}
	}

	return next, nil
}

func (s *service) queueChanged(ctx context.Context, sessionID string) (QueueResponse, error) {
	queue, err := s.getQueue(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, err
	}

	suggestions, err := s.getSuggestions(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, err
	}

	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return QueueResponse{}, err
	}

	return QueueResponse{
		Queue:       queue,
		Suggestions: suggestions,
		MemberIDs:   memberIDs,
	}, nil
}

func isPermutation(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}

	seen := make(map[string]int, len(want))
	for _, id := range want {
		seen[id]++
	}
	for _, id := range got {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}

	return true
}
