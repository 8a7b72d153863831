package http

import (
	"github.com/gin-gonic/gin"

	"tweeter/internal/domain"
	"tweeter/internal/pagination"
	"tweeter/internal/service"
)

type tweetRequest struct {
	Body string `json:"body" form:"body"`
}

func (h *Handler) listTweets(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.tweets.List(ctx, pagination.Parse(c.Query("page"), service.TweetsPerPage))
	if err != nil {
		h.fail(c, err, "tweets", nil)
		return
	}

	h.render(c, gin.H{"tweets": pagination.Map(page, func(t domain.Tweet) TweetResponse {
		return h.tweetToResponse(ctx, t)
	})})
}

func (h *Handler) listUserTweets(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.fail(c, err, "user", nil)
		return
	}
	page, err := h.tweets.ListByUser(ctx, userID, pagination.Parse(c.Query("page"), service.UserTweetsPerPage))
	if err != nil {
		h.fail(c, err, "tweets", nil)
		return
	}

	h.render(c, gin.H{
		"user": h.userToResponse(ctx, *user),
		"tweets": pagination.Map(page, func(t domain.Tweet) TweetResponse {
			return h.tweetToResponse(ctx, t)
		}),
	})
}

func (h *Handler) showTweet(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tweet, err := h.tweets.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err, "tweet", nil)
		return
	}
	h.render(c, gin.H{"tweet": h.tweetToResponse(c.Request.Context(), *tweet)})
}

func (h *Handler) newTweet(c *gin.Context) {
	h.render(c, gin.H{"tweet": tweetForm{}})
}

func (h *Handler) createTweet(c *gin.Context) {
	var req tweetRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	owner := currentUser(c)
	if _, err := h.tweets.Create(c.Request.Context(), owner.ID, service.TweetInput{Body: req.Body}); err != nil {
		h.fail(c, err, "tweet", tweetForm{Body: req.Body})
		return
	}
	h.redirect(c, "/", flashNotice, "Tweet was successfully created.")
}

func (h *Handler) editTweet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	owner := currentUser(c)
	tweet, err := h.tweets.Get(c.Request.Context(), owner.ID, id)
	if err != nil {
		h.fail(c, err, "tweet", nil)
		return
	}
	h.render(c, gin.H{"tweet": h.tweetToResponse(c.Request.Context(), *tweet)})
}

func (h *Handler) updateTweet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req tweetRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	owner := currentUser(c)
	tweet, err := h.tweets.Update(c.Request.Context(), owner.ID, id, service.TweetInput{Body: req.Body})
	if err != nil {
		h.fail(c, err, "tweet", tweetForm{Body: req.Body})
		return
	}
	h.redirect(c, tweetPath(owner.ID, tweet.ID), flashNotice, "Tweet was successfully updated.")
}

func (h *Handler) destroyTweet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	owner := currentUser(c)
	if err := h.tweets.Destroy(c.Request.Context(), owner.ID, id); err != nil {
		h.fail(c, err, "tweet", nil)
		return
	}
	h.redirect(c, userTweetsPath(owner.ID), flashNotice, "Tweet was successfully destroyed.")
}
