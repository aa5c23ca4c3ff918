package session

import (
	"context"
	"time"

	"github.com/audiolyze/server/internal/repository/session"
)

// Grace timers are keyed "session:<id>" for host-away countdowns and
// "member:<id>" for audience identity expiry. Scheduling replaces any timer
// already armed under the same key.
func (s *service) scheduleGraceTimer(key string, fn func()) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if timer, ok := s.graceTimer[key]; ok {
		timer.Stop()
	}

	s.graceTimer[key] = time.AfterFunc(s.config.GracePeriod, func() {
		s.timerMu.Lock()
		delete(s.graceTimer, key)
		s.timerMu.Unlock()

		fn()
	})
}

func (s *service) cancelGraceTimer(key string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if timer, ok := s.graceTimer[key]; ok {
		timer.Stop()
		delete(s.graceTimer, key)
	}
}

func (s *service) scheduleHostAway(sessionID string) {
	s.scheduleGraceTimer("session:"+sessionID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.expireHostAway(ctx, sessionID)
	})
}

func (s *service) scheduleMemberExpiry(memberID, sessionID string) {
	s.scheduleGraceTimer("member:"+memberID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.expireMember(ctx, memberID, sessionID)
	})
}

// expireHostAway closes a session whose host never came back.
func (s *service) expireHostAway(ctx context.Context, sessionID string) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	// the host may have reconnected and re-disconnected in the meantime; the
	// timer would have been re-armed, so an existing session with an online
	// host means this expiry is stale
	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		return
	}
	if host, err := s.sessionRepo.GetMember(ctx, sess.HostMemberID); err == nil && host.IsOnline {
		return
	}

	memberIDs, err := s.closeSession(ctx, sessionID, sess.HostMemberID)
	if err != nil {
		s.logger.Warn("failed to close host-away session", "session_id", sessionID, "error", err)
		return
	}

	s.logger.Info("session closed after host-away grace period", "session_id", sessionID)

	if s.sink != nil {
		s.sink.SessionClosed(sessionID, memberIDs)
		s.sink.DirectoryChanged()
	}
}

// expireMember removes a disconnected audience member whose grace window ran
// out.
func (s *service) expireMember(ctx context.Context, memberID, sessionID string) {
	if sessionID != "" {
		unlock := s.lockSession(sessionID)
		defer unlock()
	}

	member, err := s.sessionRepo.GetMember(ctx, memberID)
	if err != nil {
		return
	}
	if member.IsOnline {
		// reconnected, nothing to do
		return
	}

	if sessionID != "" {
		if err := s.sessionRepo.RemoveMemberFromSession(ctx, &session.RemoveMemberFromSessionParams{
			MemberID:  memberID,
			SessionID: sessionID,
		}); err != nil {
			s.logger.Warn("failed to remove expired member", "member_id", memberID, "error", err)
		}
	}

	if err := s.sessionRepo.RemoveMember(ctx, memberID); err != nil {
		s.logger.Warn("failed to remove expired member", "member_id", memberID, "error", err)
		return
	}

	if sessionID == "" || s.sink == nil {
		return
	}

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		return
	}

	systemMessage := s.newSystemMessage(member.DisplayName + " left the stage")
	s.appendSystemMessage(ctx, sessionID, systemMessage)

	members, err := s.getMembers(ctx, sessionID, sess.HostMemberID)
	if err != nil {
		return
	}

	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return
	}

	s.sink.MemberExpired(sessionID, memberIDs, members, systemMessage)
	s.sink.DirectoryChanged()
}
