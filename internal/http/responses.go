package http

import (
	"context"
	"fmt"
	"time"

	"tweeter/internal/attachment"
	"tweeter/internal/domain"
)

type UserResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Avatar      map[string]string `json:"avatar"`
	SignInCount int               `json:"sign_in_count"`
	LastSignIn  *string           `json:"last_sign_in_at,omitempty"`
	URL         string            `json:"url"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

type AuthorResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type TweetResponse struct {
	ID        int64           `json:"id"`
	Body      string          `json:"body"`
	UserID    int64           `json:"user_id"`
	User      *AuthorResponse `json:"user,omitempty"`
	URL       string          `json:"url"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type tweetForm struct {
	Body string `json:"body"`
}

type userForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) userToResponse(ctx context.Context, user domain.User) UserResponse {
	resp := UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Avatar:      h.avatarURLs(ctx, user.Avatar),
		SignInCount: user.SignInCount,
		URL:         userPath(user.ID),
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
	if user.LastSignInAt != nil {
		v := user.LastSignInAt.Format(time.RFC3339)
		resp.LastSignIn = &v
	}
	return resp
}

func (h *Handler) tweetToResponse(ctx context.Context, tweet domain.Tweet) TweetResponse {
	resp := TweetResponse{
		ID:        tweet.ID,
		Body:      tweet.Body,
		UserID:    tweet.UserID,
		URL:       tweetPath(tweet.UserID, tweet.ID),
		CreatedAt: tweet.CreatedAt.Format(time.RFC3339),
		UpdatedAt: tweet.UpdatedAt.Format(time.RFC3339),
	}
	if tweet.Author != nil {
		resp.User = &AuthorResponse{
			ID:        tweet.Author.ID,
			Name:      tweet.Author.Name,
			Email:     tweet.Author.Email,
			AvatarURL: h.avatarURL(ctx, tweet.Author.Avatar, "thumb"),
		}
	}
	return resp
}

func (h *Handler) avatarURL(ctx context.Context, avatar domain.Avatar, style string) string {
	if h.avatars == nil {
		return attachment.DefaultURL(style)
	}
	return h.avatars.URL(ctx, avatar, style)
}

func (h *Handler) avatarURLs(ctx context.Context, avatar domain.Avatar) map[string]string {
	if h.avatars == nil {
		urls := map[string]string{attachment.StyleOriginal: attachment.DefaultURL(attachment.StyleOriginal)}
		for _, style := range attachment.Styles {
			urls[style.Name] = attachment.DefaultURL(style.Name)
		}
		return urls
	}
	return h.avatars.URLs(ctx, avatar)
}

func userPath(id int64) string {
	return fmt.Sprintf("/users/%d", id)
}

func userTweetsPath(userID int64) string {
	return fmt.Sprintf("/users/%d/tweets", userID)
}

func tweetPath(userID, id int64) string {
	return fmt.Sprintf("/users/%d/tweets/%d", userID, id)
}
