package domain

// Event types emitted by a live session.
const (
	EventLiveStarted  = "live_started"
	EventLiveEnded    = "live_ended"
	EventCommentAdded = "comment_added"
	EventViewerJoined = "viewer_joined"
	EventHeartAdded   = "heart_added"
)

// LiveStartedPayload is sent when a host goes live.
type LiveStartedPayload struct {
	Host   string `json:"host"`
	Avatar string `json:"avatar,omitempty"`
}

// LiveEndedPayload is sent when a session ends.
type LiveEndedPayload struct {
	ViewerCount int `json:"viewer_count"`
	Comments    int `json:"comments"`
}

// ViewerJoinedPayload is sent when a synthetic viewer joins.
type ViewerJoinedPayload struct {
	Username string `json:"username"`
}

// CommentAddedPayload and HeartAddedPayload reuse the model types.
type (
	CommentAddedPayload = Comment
	HeartAddedPayload   = HeartMarker
)
