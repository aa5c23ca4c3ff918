package session

import (
	"context"

	"github.com/audiolyze/server/internal/protocol"
)

// GetPublicSessions lists the live public directory. Sessions that vanished
// between the index read and the summary build are skipped, not surfaced.
func (s *service) GetPublicSessions(ctx context.Context) ([]protocol.SessionSummary, error) {
	sessionIDs, err := s.sessionRepo.GetPublicSessionIDs(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]protocol.SessionSummary, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		summary, err := s.getSessionSummary(ctx, sessionID)
		if err != nil {
			continue
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
