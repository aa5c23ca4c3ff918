package controller

import (
	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.loggerWSMw())
	mux.HandleError(c.handleWSError)

	// session lifecycle
	wsrouter.Handle(mux, protocol.CmdCreateSession, c.handleCreateSession)
	wsrouter.Handle(mux, protocol.CmdJoinSession, c.handleJoinSession)
	wsrouter.Handle(mux, protocol.CmdLeaveSession, c.handleLeaveSession)
	wsrouter.Handle(mux, protocol.CmdGoToMenu, c.handleGoToMenu)
	wsrouter.Handle(mux, protocol.CmdReturnToSession, c.handleReturnToSession)
	wsrouter.Handle(mux, protocol.CmdEndSession, c.handleEndSession)
	wsrouter.Handle(mux, protocol.CmdRenameSession, c.handleRenameSession)
	wsrouter.Handle(mux, protocol.CmdTogglePublic, c.handleTogglePublic)
	wsrouter.Handle(mux, protocol.CmdUpdateNowPlaying, c.handleUpdateNowPlaying)

	// member
	wsrouter.Handle(mux, protocol.CmdSetDisplayName, c.handleSetDisplayName)
	wsrouter.Handle(mux, protocol.CmdChatMessage, c.handleChatMessage)

	// playback
	wsrouter.Handle(mux, protocol.CmdSetAudioSource, c.handleSetAudioSource)
	wsrouter.Handle(mux, protocol.CmdSyncHeartbeat, c.handleSyncHeartbeat)
	wsrouter.Handle(mux, protocol.CmdHostAction, c.handleHostAction)

	// queue
	wsrouter.Handle(mux, protocol.CmdQueueAdd, c.handleQueueAdd)
	wsrouter.Handle(mux, protocol.CmdQueueRemove, c.handleQueueRemove)
	wsrouter.Handle(mux, protocol.CmdQueueReorder, c.handleQueueReorder)
	wsrouter.Handle(mux, protocol.CmdQueueAdvance, c.handleQueueAdvance)

	// suggestions
	wsrouter.Handle(mux, protocol.CmdSuggestSong, c.handleSuggestSong)
	wsrouter.Handle(mux, protocol.CmdRespondSuggestion, c.handleRespondSuggestion)

	return mux
}
