package client

import (
	"context"
	"time"

	"github.com/audiolyze/server/internal/protocol"
)

const heartbeatInterval = 2 * time.Second

// Heartbeater publishes the host's playback clock on a fixed cadence while
// hosting. The send func is the client's command writer.
type Heartbeater struct {
	player    Player
	isPlaying func() bool
	speed     func() float64
	send      func(messageType string, payload any) error
}

func NewHeartbeater(player Player, isPlaying func() bool, speed func() float64, send func(string, any) error) *Heartbeater {
	return &Heartbeater{
		player:    player,
		isPlaying: isPlaying,
		speed:     speed,
		send:      send,
	}
}

// Run ticks until the context is cancelled. Send failures end the loop; the
// caller restarts it on reconnect.
func (h *Heartbeater) Run(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := h.send(protocol.CmdSyncHeartbeat, &protocol.SyncHeartbeatInput{
				PositionSeconds: h.player.Position(),
				IsPlaying:       h.isPlaying(),
				SpeedMultiplier: h.speed(),
			}); err != nil {
				return err
			}
		}
	}
}
