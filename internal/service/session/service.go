package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionPrivate   = errors.New("session is private")
	ErrMemberNotFound   = errors.New("member not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrDuplicatePending = errors.New("duplicate pending suggestion")
	ErrNotInSession     = errors.New("not in a session")
	ErrNoOwnedSession   = errors.New("no owned session")

	ErrInvalidSpeed       = errors.New("speed multiplier must be positive")
	ErrUnknownHostAction  = errors.New("unknown host action")
	ErrQueueItemNotFound  = errors.New("queue item not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
)

type iSessionRepo interface {
	// session
	SetSession(context.Context, *session.SetSessionParams) error
	GetSession(ctx context.Context, sessionID string) (session.Session, error)
	IsSessionExists(ctx context.Context, sessionID string) (bool, error)
	RemoveSession(ctx context.Context, sessionID string) error
	UpdateSessionName(ctx context.Context, sessionID, name string) error
	UpdateSessionIsPublic(ctx context.Context, sessionID string, isPublic bool) error
	UpdateSessionNowPlaying(ctx context.Context, sessionID, nowPlaying string) error
	GetPublicSessionIDs(ctx context.Context) ([]string, error)
	// member
	SetMember(context.Context, *session.SetMemberParams) error
	GetMember(ctx context.Context, memberID string) (session.Member, error)
	RemoveMember(ctx context.Context, memberID string) error
	UpdateMemberDisplayName(ctx context.Context, memberID, displayName string) error
	UpdateMemberIsOnline(ctx context.Context, memberID string, isOnline bool) error
	AddMemberToSession(context.Context, *session.AddMemberToSessionParams) error
	RemoveMemberFromSession(context.Context, *session.RemoveMemberFromSessionParams) error
	GetMemberIDs(ctx context.Context, sessionID string) ([]string, error)
	GetMemberSessionID(ctx context.Context, memberID string) (string, error)
	SetMemberHostedSessionID(ctx context.Context, memberID, sessionID string) error
	GetMemberHostedSessionID(ctx context.Context, memberID string) (string, error)
	RemoveMemberHostedSessionID(ctx context.Context, memberID string) error
	// playback
	SetPlayback(context.Context, *session.SetPlaybackParams) error
	GetPlayback(ctx context.Context, sessionID string) (session.Playback, error)
	UpdatePlayback(context.Context, *session.SetPlaybackParams) error
	SetVisualizer(context.Context, *session.SetVisualizerParams) error
	GetVisualizer(ctx context.Context, sessionID string) (session.Visualizer, error)
	UpdateVisualizerField(ctx context.Context, sessionID, field, value string) error
	SetAudioSource(context.Context, *session.SetAudioSourceParams) error
	GetAudioSource(ctx context.Context, sessionID string) (session.AudioSource, error)
	// queue
	SetQueueItem(context.Context, *session.SetQueueItemParams) error
	GetQueueItem(ctx context.Context, sessionID, itemID string) (session.QueueItem, error)
	RemoveQueueItem(context.Context, *session.RemoveQueueItemParams) error
	UpdateQueueItemStatus(context.Context, *session.UpdateQueueItemStatusParams) error
	GetQueueItemIDs(ctx context.Context, sessionID string) ([]string, error)
	SetQueueOrder(context.Context, *session.SetQueueOrderParams) error
	// suggestions
	SetSuggestion(context.Context, *session.SetSuggestionParams) error
	GetSuggestion(ctx context.Context, sessionID, suggestionID string) (session.Suggestion, error)
	RemoveSuggestion(context.Context, *session.RemoveSuggestionParams) error
	GetSuggestionIDs(ctx context.Context, sessionID string) ([]string, error)
	// chat
	AddChatMessage(context.Context, *session.AddChatMessageParams) error
	GetChatMessages(ctx context.Context, sessionID string, limit int) ([]session.ChatMessage, error)
	// reconnect tokens
	SetReconnectToken(context.Context, *session.SetReconnectTokenParams) error
	GetMemberIDByReconnectToken(ctx context.Context, token string) (string, error)
	RemoveReconnectToken(ctx context.Context, token string) error
}

// EventSink receives events that originate inside the service rather than
// from an inbound command: grace-period expiries. The controller implements
// it and owns the actual fan-out.
type EventSink interface {
	SessionClosed(sessionID string, memberIDs []string)
	MemberExpired(sessionID string, memberIDs []string, members []protocol.Member, systemMessage *protocol.ChatMessage)
	DirectoryChanged()
}

type Config struct {
	// LockedHeadSize is the number of leading non-played queue items whose
	// order reorder commands cannot touch.
	LockedHeadSize int
	// GracePeriod is how long a disconnected member keeps its identity and a
	// host-away session stays alive.
	GracePeriod time.Duration
	// ChatJoinReplay is how many chat messages a joining member receives.
	ChatJoinReplay int
}

type service struct {
	sessionRepo iSessionRepo
	config      *Config
	logger      *slog.Logger

	// One mutex per live session: every command that touches a session's
	// state runs under it, so commands apply in receipt order.
	locks sync.Map

	sink       EventSink
	graceTimer map[string]*time.Timer
	timerMu    sync.Mutex
}

func NewService(sessionRepo iSessionRepo, config *Config, logger *slog.Logger) *service {
	if config.LockedHeadSize <= 0 {
		config.LockedHeadSize = 3
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = 60 * time.Second
	}
	if config.ChatJoinReplay <= 0 {
		config.ChatJoinReplay = 50
	}

	return &service{
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
		graceTimer:  make(map[string]*time.Timer),
	}
}

func (s *service) SetEventSink(sink EventSink) {
	s.sink = sink
}

func (s *service) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

func (s *service) dropSessionLock(sessionID string) {
	s.locks.Delete(sessionID)
}
