package controller

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
	"github.com/audiolyze/server/pkg/randstr"
	"github.com/audiolyze/server/pkg/validator"
	"github.com/audiolyze/server/pkg/wsrouter"
)

type iSessionService interface {
	Connect(context.Context, *session.ConnectParams) (session.ConnectResponse, error)
	DisconnectMember(context.Context, *session.DisconnectMemberParams) (session.DisconnectMemberResponse, error)
	SetDisplayName(context.Context, *session.SetDisplayNameParams) (session.SetDisplayNameResponse, error)
	CreateSession(context.Context, *session.CreateSessionParams) (session.CreateSessionResponse, error)
	JoinSession(context.Context, *session.JoinSessionParams) (session.JoinSessionResponse, error)
	LeaveSession(context.Context, *session.LeaveSessionParams) (*session.LeaveResult, error)
	GoToMenu(context.Context, *session.GoToMenuParams) (*session.LeaveResult, error)
	ReturnToSession(context.Context, *session.ReturnToSessionParams) (session.ReturnToSessionResponse, error)
	EndSession(context.Context, *session.EndSessionParams) (session.EndSessionResponse, error)
	RenameSession(context.Context, *session.RenameSessionParams) (session.SessionUpdatedResponse, error)
	TogglePublic(context.Context, *session.TogglePublicParams) (session.SessionUpdatedResponse, error)
	UpdateNowPlaying(context.Context, *session.UpdateNowPlayingParams) (session.SessionUpdatedResponse, error)
	SetAudioSource(context.Context, *session.SetAudioSourceParams) (session.SetAudioSourceResponse, error)
	SyncHeartbeat(context.Context, *session.SyncHeartbeatParams) (session.SyncHeartbeatResponse, error)
	HostAction(context.Context, *session.HostActionParams) (session.HostActionResponse, error)
	QueueAdd(context.Context, *session.QueueAddParams) (session.QueueResponse, error)
	QueueRemove(context.Context, *session.QueueRemoveParams) (session.QueueResponse, error)
	QueueReorder(context.Context, *session.QueueReorderParams) (session.QueueResponse, error)
	QueueAdvance(context.Context, *session.QueueAdvanceParams) (session.QueueResponse, error)
	SuggestSong(context.Context, *session.SuggestSongParams) (session.SuggestSongResponse, error)
	RespondSuggestion(context.Context, *session.RespondSuggestionParams) (session.RespondSuggestionResponse, error)
	SendChatMessage(context.Context, *session.SendChatMessageParams) (session.SendChatMessageResponse, error)
	GetPublicSessions(ctx context.Context) ([]protocol.SessionSummary, error)
	SetEventSink(sink session.EventSink)
}

type iSender interface {
	Add(conn *websocket.Conn, memberID string) error
	RemoveByConn(conn *websocket.Conn) (string, error)
	GetMemberID(conn *websocket.Conn) (string, error)
	Send(memberID string, data []byte) error
	GetMemberIDs() []string
	CloseWithCode(memberID string, code int, reason string) error
}

type iMediaRepo interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
}

type controller struct {
	sessionService iSessionService
	sender         iSender
	mediaRepo      iMediaRepo
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	wsmux          *wsrouter.WSRouter
	rnd            *randstr.Generator
	logger         *slog.Logger
}

func NewController(sessionService iSessionService, sender iSender, mediaRepo iMediaRepo, logger *slog.Logger) *controller {
	c := &controller{
		sessionService: sessionService,
		sender:         sender,
		mediaRepo:      mediaRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		rnd:      randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789")),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()
	sessionService.SetEventSink(c)

	return c
}
