package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

const profileLookupConcurrency = 4

// ToggleLike likes postID for userID, or unlikes it if the user already
// liked it, and adjusts the post's aggregate counter. The counter is read
// then written, so concurrent toggles on the same post are last-write-wins.
func (s *FeedService) ToggleLike(ctx context.Context, userID, postID string) (*LikeState, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is empty", ErrInvalidArgument)
	}

	liked, err := s.store.HasLiked(ctx, userID, postID)
	if err != nil {
		return nil, fmt.Errorf("check like: %w", err)
	}

	delta := 1
	if liked {
		if err := s.store.RemoveLike(ctx, userID, postID); err != nil {
			return nil, fmt.Errorf("remove like: %w", err)
		}
		delta = -1
	} else {
		if err := s.store.AddLike(ctx, userID, postID); err != nil {
			return nil, fmt.Errorf("add like: %w", err)
		}
	}

	current, err := s.store.GetLikeCount(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get like count: %w", err)
	}
	count := max(current+delta, 0)
	if err := s.store.UpsertLikeCount(ctx, postID, count); err != nil {
		return nil, fmt.Errorf("upsert like count: %w", err)
	}

	s.logger.Info("like toggled", "user_id", userID, "post_id", postID, "liked", !liked, "count", count)

	if s.notifier != nil {
		s.notifier.PublishLike(LikeEvent{PostID: postID, Count: count})
	}

	return &LikeState{PostID: postID, Liked: !liked, Count: count}, nil
}

// Profile returns the user's profile metadata and liked posts. A user with
// no stored profile gets one named after their id.
func (s *FeedService) Profile(ctx context.Context, userID string) (*ProfilePage, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		profile = &Profile{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.Username == "" {
		profile.Username = userID
	}

	likedIDs, err := s.store.LikedPostIDs(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("get liked posts: %w", err)
	}

	posts, unresolved := s.resolvePosts(ctx, likedIDs)
	s.applyLikeCounts(ctx, postIDs(posts), []Section{{Items: posts}})

	return &ProfilePage{Profile: *profile, Posts: posts, Unresolved: unresolved}, nil
}

// UpdateProfile stores a user's profile metadata.
func (s *FeedService) UpdateProfile(ctx context.Context, profile Profile) (*Profile, error) {
	if profile.UserID == "" {
		return nil, ErrUserRequired
	}
	profile.Username = strings.TrimSpace(profile.Username)
	if profile.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	profile.AvatarURL = strings.TrimSpace(profile.AvatarURL)

	if err := s.store.UpsertProfile(ctx, &profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return &profile, nil
}

// resolvePosts looks up ids with at most profileLookupConcurrency requests in
// flight, keeping their order. Posts that no longer exist upstream are
// dropped; other failures are dropped and counted as unresolved.
func (s *FeedService) resolvePosts(ctx context.Context, ids []string) ([]Post, int) {
	slots := make([]*Post, len(ids))
	var (
		wg         sync.WaitGroup
		unresolved atomic.Int32
	)
	sem := make(chan struct{}, profileLookupConcurrency)
	for i, id := range ids {
		wg.Go(func() {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				unresolved.Add(1)
				return
			}
			defer func() { <-sem }()

			post, err := s.resolvePost(ctx, id)
			switch {
			case errors.Is(err, ErrPostNotFound):
				s.logger.Debug("liked post no longer exists", "post_id", id)
			case err != nil:
				s.logger.Warn("liked post unavailable", "post_id", id, "error", err)
				unresolved.Add(1)
			default:
				slots[i] = post
			}
		})
	}
	wg.Wait()

	posts := make([]Post, 0, len(ids))
	for _, p := range slots {
		if p != nil {
			posts = append(posts, *p)
		}
	}
	return posts, int(unresolved.Load())
}

func (s *FeedService) likeCount(ctx context.Context, postID string) int {
	n, err := s.store.GetLikeCount(ctx, postID)
	if err != nil {
		s.logger.Error("like count lookup failed", "post_id", postID, "error", err)
		return 0
	}
	return n
}
