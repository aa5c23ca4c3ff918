package session

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrPlaybackNotFound   = errors.New("playback not found")
	ErrAudioNotFound      = errors.New("audio source not found")
	ErrQueueItemNotFound  = errors.New("queue item not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrPendingExists      = errors.New("pending suggestion already exists")
	ErrTokenNotFound      = errors.New("reconnect token not found")
)
