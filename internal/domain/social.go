package domain

// Profile is a user's public metadata.
type Profile struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ProfilePage is the response body for the profile view.
type ProfilePage struct {
	Profile Profile `json:"profile"`

	// Posts are the user's liked posts that could still be resolved upstream,
	// most recently liked first.
	Posts []Post `json:"posts"`

	// Unresolved counts liked posts left out because upstream failed.
	Unresolved int `json:"unresolved"`
}

// LikeState is the outcome of toggling a like.
type LikeState struct {
	PostID string `json:"postId"`
	Liked  bool   `json:"liked"`
	Count  int    `json:"count"`
}

// LikeEvent announces a post's new like count.
type LikeEvent struct {
	PostID string `json:"postId"`
	Count  int    `json:"count"`
}
