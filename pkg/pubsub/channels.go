package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming for live session events.
const (
	ChannelSessionEvents = "live:session:%s:events"
	PatternSessionEvents = "live:session:*:events"
)

// SessionEventsChannel returns the channel name for a session's events.
func SessionEventsChannel(sessionID string) string {
	return fmt.Sprintf(ChannelSessionEvents, sessionID)
}

// SessionIDFromChannel extracts the session id from a session events channel.
func SessionIDFromChannel(channel string) (string, bool) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[0] != "live" || parts[1] != "session" || parts[3] != "events" {
		return "", false
	}
	if parts[2] == "" || parts[2] == "*" {
		return "", false
	}
	return parts[2], true
}
