package client

import (
	"math"
	"time"

	"github.com/audiolyze/server/internal/protocol"
)

// Player is the local audio engine the corrector steers.
type Player interface {
	Play()
	Pause()
	Seek(positionSeconds float64)
	SetSpeed(multiplier float64)
	Position() float64
}

const (
	defaultSoftThreshold = 0.3
	defaultHardThreshold = 1.0
)

// DriftCorrector reconciles the local player against authoritative playback
// snapshots. Drift inside the soft threshold is left alone so the listener
// never hears micro-seek stutter; past it the player seeks to the
// extrapolated position. The hard threshold marks where the correction is a
// snap rather than a smoothable jump, which matters to callers that layer a
// crossfade on top.
type DriftCorrector struct {
	player        Player
	softThreshold float64
	hardThreshold float64
}

func NewDriftCorrector(player Player) *DriftCorrector {
	return &DriftCorrector{
		player:        player,
		softThreshold: defaultSoftThreshold,
		hardThreshold: defaultHardThreshold,
	}
}

// ExpectedPosition extrapolates where the host's clock is now, from the
// snapshot's captured position and timestamp.
func ExpectedPosition(snapshot protocol.PlaybackSnapshot, now time.Time) float64 {
	if !snapshot.IsPlaying {
		return snapshot.PositionSeconds
	}

	elapsed := float64(now.UnixMilli())/1000 - snapshot.CapturedAt
	if elapsed < 0 {
		elapsed = 0
	}

	return snapshot.PositionSeconds + elapsed*snapshot.SpeedMultiplier
}

// Apply reconciles the player with a snapshot. Play/pause state and speed are
// mirrored unconditionally; position is corrected only when drift crosses the
// soft threshold.
func (d *DriftCorrector) Apply(snapshot protocol.PlaybackSnapshot, now time.Time) {
	d.player.SetSpeed(snapshot.SpeedMultiplier)

	if !snapshot.IsPlaying {
		d.player.Pause()
		if math.Abs(d.player.Position()-snapshot.PositionSeconds) > d.softThreshold {
			d.player.Seek(snapshot.PositionSeconds)
		}
		return
	}

	expected := ExpectedPosition(snapshot, now)
	if math.Abs(d.player.Position()-expected) > d.softThreshold {
		d.player.Seek(expected)
	}

	d.player.Play()
}

// Snapped reports whether reconciling against the snapshot would cross the
// hard threshold, i.e. the seek is an abrupt jump rather than a small nudge.
func (d *DriftCorrector) Snapped(snapshot protocol.PlaybackSnapshot, now time.Time) bool {
	if !snapshot.IsPlaying {
		return false
	}

	return math.Abs(d.player.Position()-ExpectedPosition(snapshot, now)) > d.hardThreshold
}
