package domain

// MaxComments is how many comments a session keeps; older ones are evicted first.
const MaxComments = 50

// Comment is one chat line. Immutable once created.
type Comment struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // epoch millis
}

// HeartMarker is a transient reaction. It lives for the session's heart lifetime.
type HeartMarker struct {
	ID       int64   `json:"id"`
	Position float64 `json:"position"`
}

// Viewer is an entry of the roster generated when a session goes live.
type Viewer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// SessionState is the observable state of one live session.
// Values are treated as immutable: every With* method returns a copy
// and never touches the receiver's slices.
type SessionState struct {
	IsLive        bool          `json:"is_live"`
	HostUsername  string        `json:"host_username"`
	HostAvatar    string        `json:"host_avatar,omitempty"`
	ViewerCount   int           `json:"viewer_count"`
	Comments      []Comment     `json:"comments"`
	RecentJoiners []string      `json:"recent_joiners"`
	CameraEffect  CameraEffect  `json:"camera_effect"`
	StreamQuality StreamQuality `json:"stream_quality"`
}

// NewSessionState returns the state of a session that has not gone live.
func NewSessionState() SessionState {
	return SessionState{
		Comments:      []Comment{},
		RecentJoiners: []string{},
		CameraEffect:  EffectNone,
		StreamQuality: QualityHD,
	}
}

// WithComment appends c and keeps only the newest limit comments.
func (s SessionState) WithComment(c Comment, limit int) SessionState {
	if limit <= 0 {
		limit = MaxComments
	}

	n := len(s.Comments) + 1
	start := 0
	if n > limit {
		start = n - limit
	}

	comments := make([]Comment, 0, n-start)
	if start < len(s.Comments) {
		comments = append(comments, s.Comments[start:]...)
	}
	comments = append(comments, c)

	s.Comments = comments
	return s
}

// WithViewerDelta adjusts the viewer count by delta, floored at zero.
func (s SessionState) WithViewerDelta(delta int) SessionState {
	s.ViewerCount += delta
	if s.ViewerCount < 0 {
		s.ViewerCount = 0
	}
	return s
}

// HasJoiner reports whether username is in the recent joiners set.
func (s SessionState) HasJoiner(username string) bool {
	for _, u := range s.RecentJoiners {
		if u == username {
			return true
		}
	}
	return false
}

// WithJoiner adds username to the recent joiners set.
func (s SessionState) WithJoiner(username string) SessionState {
	if s.HasJoiner(username) {
		return s
	}
	joiners := make([]string, 0, len(s.RecentJoiners)+1)
	joiners = append(joiners, s.RecentJoiners...)
	s.RecentJoiners = append(joiners, username)
	return s
}

// WithoutJoiner removes username from the recent joiners set.
// The receiver is returned unchanged when username is absent.
func (s SessionState) WithoutJoiner(username string) SessionState {
	if !s.HasJoiner(username) {
		return s
	}
	joiners := make([]string, 0, len(s.RecentJoiners)-1)
	for _, u := range s.RecentJoiners {
		if u != username {
			joiners = append(joiners, u)
		}
	}
	s.RecentJoiners = joiners
	return s
}

// WithHeart returns a copy of hearts containing h. Hearts are unique by id.
func WithHeart(hearts []HeartMarker, h HeartMarker) []HeartMarker {
	out := make([]HeartMarker, 0, len(hearts)+1)
	for _, existing := range hearts {
		if existing.ID != h.ID {
			out = append(out, existing)
		}
	}
	return append(out, h)
}

// WithoutHeart returns a copy of hearts without the marker with the given id.
func WithoutHeart(hearts []HeartMarker, id int64) []HeartMarker {
	out := make([]HeartMarker, 0, len(hearts))
	for _, existing := range hearts {
		if existing.ID != id {
			out = append(out, existing)
		}
	}
	return out
}
