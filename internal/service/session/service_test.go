package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolyze/server/internal/protocol"
	sessionredis "github.com/audiolyze/server/internal/repository/session/redis"
)

func newTestService(t *testing.T, config *Config) *service {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	if config == nil {
		config = &Config{}
	}

	return NewService(sessionredis.NewRepo(rc, time.Hour), config, slog.Default())
}

func connectMember(t *testing.T, svc *service, name string) ConnectResponse {
	t.Helper()

	resp, err := svc.Connect(context.Background(), &ConnectParams{DisplayName: name})
	require.NoError(t, err)
	require.NotEmpty(t, resp.MemberID)
	require.NotEmpty(t, resp.ReconnectToken)

	return resp
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")

	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	assert.Equal(t, "alice's Stage", createResp.State.Session.Name)
	assert.Equal(t, alice.MemberID, createResp.State.Session.HostID)
	assert.False(t, createResp.State.Session.IsPublic)
	assert.False(t, createResp.State.Playback.IsPlaying)
	assert.Equal(t, float64(1), createResp.State.Playback.SpeedMultiplier)
	require.Len(t, createResp.State.Members, 1)
	assert.True(t, createResp.State.Members[0].IsHost)

	// private sessions never show up in the directory
	public, err := svc.GetPublicSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	toggleResp, err := svc.TogglePublic(ctx, &TogglePublicParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	assert.True(t, toggleResp.Summary.IsPublic)
	assert.True(t, toggleResp.DirectoryChanged)

	public, err = svc.GetPublicSessions(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, 0, public[0].AudienceCount)
	assert.Equal(t, "alice", public[0].HostName)

	bob := connectMember(t, svc, "bob")

	joinResp, err := svc.JoinSession(ctx, &JoinSessionParams{
		MemberID:  bob.MemberID,
		SessionID: createResp.SessionID,
	})
	require.NoError(t, err)
	assert.False(t, joinResp.AsHost)
	assert.Nil(t, joinResp.OwnedSessionSummary)
	assert.Len(t, joinResp.Members, 2)
	require.NotNil(t, joinResp.SystemMessage)
	assert.Equal(t, "bob joined the stage", joinResp.SystemMessage.Text)
	assert.Equal(t, []string{alice.MemberID}, joinResp.MemberIDs)

	public, err = svc.GetPublicSessions(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, 1, public[0].AudienceCount)

	// audience cannot rename
	_, err = svc.RenameSession(ctx, &RenameSessionParams{MemberID: bob.MemberID, Name: "Bob's"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	renameResp, err := svc.RenameSession(ctx, &RenameSessionParams{MemberID: alice.MemberID, Name: "Late Night"})
	require.NoError(t, err)
	assert.Equal(t, "Late Night", renameResp.Summary.Name)

	chatResp, err := svc.SendChatMessage(ctx, &SendChatMessageParams{MemberID: bob.MemberID, Text: "hi"})
	require.NoError(t, err)
	assert.False(t, chatResp.Message.IsHost)
	assert.Len(t, chatResp.MemberIDs, 2)

	left, err := svc.LeaveSession(ctx, &LeaveSessionParams{MemberID: bob.MemberID})
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.False(t, left.WasHost)
	assert.Len(t, left.Members, 1)
	require.NotNil(t, left.SystemMessage)
	assert.Equal(t, "bob left the stage", left.SystemMessage.Text)

	endResp, err := svc.EndSession(ctx, &EndSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	assert.Equal(t, createResp.SessionID, endResp.SessionID)
	assert.Empty(t, endResp.MemberIDs)

	public, err = svc.GetPublicSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)
}

func TestJoinPrivateSession(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	bob := connectMember(t, svc, "bob")
	_, err = svc.JoinSession(ctx, &JoinSessionParams{
		MemberID:  bob.MemberID,
		SessionID: createResp.SessionID,
	})
	assert.ErrorIs(t, err, ErrSessionPrivate)

	_, err = svc.JoinSession(ctx, &JoinSessionParams{
		MemberID:  bob.MemberID,
		SessionID: "missing",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGoToMenuAndReturn(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID, Name: "Stage A"})
	require.NoError(t, err)

	left, err := svc.GoToMenu(ctx, &GoToMenuParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.True(t, left.WasHost)
	require.NotNil(t, left.OwnedSummary)
	assert.Equal(t, "Stage A", left.OwnedSummary.Name)

	// the session survives with the host out of the member list
	_, err = svc.getMemberSessionID(ctx, alice.MemberID)
	assert.ErrorIs(t, err, ErrNotInSession)

	returnResp, err := svc.ReturnToSession(ctx, &ReturnToSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	assert.True(t, returnResp.NeedsAudioReload)
	assert.Equal(t, createResp.SessionID, returnResp.State.Session.ID)
	require.Len(t, returnResp.State.Members, 1)
	assert.True(t, returnResp.State.Members[0].IsHost)
}

func TestVisitingAnotherSession(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	_, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID, Name: "Alice's"})
	require.NoError(t, err)

	bob := connectMember(t, svc, "bob")
	bobCreate, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: bob.MemberID, Name: "Bob's"})
	require.NoError(t, err)
	_, err = svc.TogglePublic(ctx, &TogglePublicParams{MemberID: bob.MemberID})
	require.NoError(t, err)

	// alice visits bob's session; her own stays alive and she is flagged as
	// an owner elsewhere
	joinResp, err := svc.JoinSession(ctx, &JoinSessionParams{
		MemberID:  alice.MemberID,
		SessionID: bobCreate.SessionID,
	})
	require.NoError(t, err)
	assert.False(t, joinResp.AsHost)
	require.NotNil(t, joinResp.OwnedSessionSummary)
	assert.Equal(t, "Alice's", joinResp.OwnedSessionSummary.Name)

	// a visiting owner can still end their own session from afar
	endResp, err := svc.EndSession(ctx, &EndSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	assert.NotEqual(t, bobCreate.SessionID, endResp.SessionID)

	// and afterwards has nothing to return to
	_, err = svc.ReturnToSession(ctx, &ReturnToSessionParams{MemberID: alice.MemberID})
	assert.ErrorIs(t, err, ErrNoOwnedSession)
}

func TestReconnectResume(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	_, err = svc.DisconnectMember(ctx, &DisconnectMemberParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	resumed, err := svc.Connect(ctx, &ConnectParams{
		DisplayName:    "alice",
		ReconnectToken: alice.ReconnectToken,
	})
	require.NoError(t, err)
	assert.Equal(t, alice.MemberID, resumed.MemberID)
	assert.True(t, resumed.Resumed)
	require.NotNil(t, resumed.ResumedState)
	assert.Equal(t, createResp.SessionID, resumed.ResumedState.Session.ID)

	// the token rotates on resume and the spent one is dead
	assert.NotEqual(t, alice.ReconnectToken, resumed.ReconnectToken)

	replayed, err := svc.Connect(ctx, &ConnectParams{
		DisplayName:    "alice",
		ReconnectToken: alice.ReconnectToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, alice.MemberID, replayed.MemberID)
	assert.False(t, replayed.Resumed)

	// an unknown token mints a fresh identity
	fresh, err := svc.Connect(ctx, &ConnectParams{
		DisplayName:    "alice",
		ReconnectToken: "bogus",
	})
	require.NoError(t, err)
	assert.NotEqual(t, alice.MemberID, fresh.MemberID)
	assert.False(t, fresh.Resumed)
}

type captureSink struct {
	closed    chan string
	expired   chan string
	directory chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{
		closed:    make(chan string, 8),
		expired:   make(chan string, 8),
		directory: make(chan struct{}, 8),
	}
}

func (s *captureSink) SessionClosed(sessionID string, memberIDs []string) {
	s.closed <- sessionID
}

func (s *captureSink) MemberExpired(sessionID string, memberIDs []string, members []protocol.Member, systemMessage *protocol.ChatMessage) {
	s.expired <- sessionID
}

func (s *captureSink) DirectoryChanged() {
	s.directory <- struct{}{}
}

func TestGraceExpiry(t *testing.T) {
	svc := newTestService(t, &Config{GracePeriod: 50 * time.Millisecond})
	sink := newCaptureSink()
	svc.SetEventSink(sink)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	bob := connectMember(t, svc, "bob")
	_, err = svc.TogglePublic(ctx, &TogglePublicParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	_, err = svc.JoinSession(ctx, &JoinSessionParams{MemberID: bob.MemberID, SessionID: createResp.SessionID})
	require.NoError(t, err)

	// bob drops and never comes back
	discResp, err := svc.DisconnectMember(ctx, &DisconnectMemberParams{MemberID: bob.MemberID})
	require.NoError(t, err)
	assert.False(t, discResp.WasHost)

	select {
	case sessionID := <-sink.expired:
		assert.Equal(t, createResp.SessionID, sessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("member expiry never fired")
	}

	members, err := svc.getMembers(ctx, createResp.SessionID, alice.MemberID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	// now the host drops too
	_, err = svc.DisconnectMember(ctx, &DisconnectMemberParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	select {
	case sessionID := <-sink.closed:
		assert.Equal(t, createResp.SessionID, sessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("host-away expiry never fired")
	}

	public, err := svc.GetPublicSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)
}

func TestReconnectCancelsHostAway(t *testing.T) {
	svc := newTestService(t, &Config{GracePeriod: 100 * time.Millisecond})
	sink := newCaptureSink()
	svc.SetEventSink(sink)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	_, err = svc.DisconnectMember(ctx, &DisconnectMemberParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	resumed, err := svc.Connect(ctx, &ConnectParams{
		DisplayName:    "alice",
		ReconnectToken: alice.ReconnectToken,
	})
	require.NoError(t, err)
	require.True(t, resumed.Resumed)

	select {
	case <-sink.closed:
		t.Fatal("session closed despite host reconnect")
	case <-time.After(300 * time.Millisecond):
	}

	state, err := svc.getSessionState(ctx, createResp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, createResp.SessionID, state.Session.ID)
}

func TestSyncHeartbeat(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	_, err = svc.TogglePublic(ctx, &TogglePublicParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	bob := connectMember(t, svc, "bob")
	_, err = svc.JoinSession(ctx, &JoinSessionParams{MemberID: bob.MemberID, SessionID: createResp.SessionID})
	require.NoError(t, err)

	// only the host drives the clock
	_, err = svc.SyncHeartbeat(ctx, &SyncHeartbeatParams{
		MemberID:        bob.MemberID,
		PositionSeconds: 10,
		IsPlaying:       true,
		SpeedMultiplier: 1,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	hbResp, err := svc.SyncHeartbeat(ctx, &SyncHeartbeatParams{
		MemberID:        alice.MemberID,
		PositionSeconds: 12.5,
		IsPlaying:       true,
		SpeedMultiplier: 1.25,
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, hbResp.Snapshot.PositionSeconds)
	assert.True(t, hbResp.Snapshot.IsPlaying)
	assert.Greater(t, hbResp.Snapshot.CapturedAt, float64(0))
	assert.Equal(t, []string{bob.MemberID}, hbResp.MemberIDs)

	state, err := svc.getSessionState(ctx, createResp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, state.Playback.PositionSeconds)
	assert.Equal(t, 1.25, state.Playback.SpeedMultiplier)
}

func TestHostAction(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	_, err = svc.HostAction(ctx, &HostActionParams{
		MemberID: alice.MemberID,
		Kind:     protocol.HostActionSeek,
		Payload:  []byte(`{"positionSeconds": 42}`),
	})
	require.NoError(t, err)

	_, err = svc.HostAction(ctx, &HostActionParams{
		MemberID: alice.MemberID,
		Kind:     protocol.HostActionPlay,
	})
	require.NoError(t, err)

	state, err := svc.getSessionState(ctx, createResp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, float64(42), state.Playback.PositionSeconds)
	assert.True(t, state.Playback.IsPlaying)

	_, err = svc.HostAction(ctx, &HostActionParams{
		MemberID: alice.MemberID,
		Kind:     protocol.HostActionShapeChange,
		Payload:  []byte(`{"shape": "sphere"}`),
	})
	require.NoError(t, err)

	state, err = svc.getSessionState(ctx, createResp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "sphere", state.Visualizer.Shape)

	_, err = svc.HostAction(ctx, &HostActionParams{
		MemberID: alice.MemberID,
		Kind:     protocol.HostActionSpeedChange,
		Payload:  []byte(`{"speedMultiplier": 0}`),
	})
	assert.ErrorIs(t, err, ErrInvalidSpeed)

	_, err = svc.HostAction(ctx, &HostActionParams{
		MemberID: alice.MemberID,
		Kind:     protocol.HostActionReset,
	})
	require.NoError(t, err)

	state, err = svc.getSessionState(ctx, createResp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), state.Playback.PositionSeconds)
	assert.False(t, state.Playback.IsPlaying)
}

func TestChatReplayBounded(t *testing.T) {
	svc := newTestService(t, &Config{ChatJoinReplay: 5})
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := svc.SendChatMessage(ctx, &SendChatMessageParams{MemberID: alice.MemberID, Text: "x"})
		require.NoError(t, err)
	}

	state, err := svc.getSessionState(ctx, createResp.SessionID)
	require.NoError(t, err)
	assert.Len(t, state.Messages, 5)
}
