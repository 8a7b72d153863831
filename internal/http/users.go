package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tweeter/internal/attachment"
	"tweeter/internal/domain"
	"tweeter/internal/pagination"
	"tweeter/internal/service"
)

// profileRequest lists the only attributes a profile update may touch.
// Anything else in the request is ignored.
type profileRequest struct {
	Name  *string `json:"name" form:"name"`
	Email *string `json:"email" form:"email"`
}

func (h *Handler) listUsers(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.users.List(ctx, pagination.Parse(c.Query("page"), service.UsersPerPage))
	if err != nil {
		h.fail(c, err, "users", nil)
		return
	}

	h.render(c, gin.H{"users": pagination.Map(page, func(u domain.User) UserResponse {
		return h.userToResponse(ctx, u)
	})})
}

func (h *Handler) showUser(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err, "user", nil)
		return
	}
	tweets, err := h.tweets.ListByUser(ctx, id, pagination.Parse(c.Query("page"), service.UserTweetsPerPage))
	if err != nil {
		h.fail(c, err, "tweets", nil)
		return
	}

	h.render(c, gin.H{
		"user": h.userToResponse(ctx, *user),
		"tweets": pagination.Map(tweets, func(t domain.Tweet) TweetResponse {
			return h.tweetToResponse(ctx, t)
		}),
	})
}

func (h *Handler) editUser(c *gin.Context) {
	user, ok := h.loadOwnedUser(c)
	if !ok {
		return
	}
	h.render(c, gin.H{"user": h.userToResponse(c.Request.Context(), *user)})
}

func (h *Handler) updateUser(c *gin.Context) {
	user, ok := h.loadOwnedUser(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	avatar, closeAvatar, err := formAvatar(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closeAvatar()

	actor := currentUser(c)
	updated, err := h.users.Update(c.Request.Context(), actor.ID, user.ID, service.ProfileInput{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: avatar,
	})
	if err != nil {
		form := userForm{Name: user.Name, Email: user.Email}
		if req.Name != nil {
			form.Name = *req.Name
		}
		if req.Email != nil {
			form.Email = *req.Email
		}
		h.fail(c, err, "user", form)
		return
	}
	h.redirect(c, userPath(updated.ID), flashNotice, "User was successfully updated.")
}

func (h *Handler) destroyUser(c *gin.Context) {
	user, ok := h.loadOwnedUser(c)
	if !ok {
		return
	}

	actor := currentUser(c)
	if err := h.users.Destroy(c.Request.Context(), actor.ID, user.ID); err != nil {
		h.fail(c, err, "user", nil)
		return
	}
	h.clearSessionCookie(c)
	h.redirect(c, "/users", flashNotice, "User was successfully destroyed.")
}

// loadOwnedUser loads the path user and checks it is the signed-in user.
// Unknown users answer 404 before ownership is considered.
func (h *Handler) loadOwnedUser(c *gin.Context) (*domain.User, bool) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return nil, false
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "user", nil)
		return nil, false
	}

	actor := currentUser(c)
	if actor == nil || actor.ID != user.ID {
		h.redirect(c, refererOr(c, "/"), flashAlert, "This action is not allowed")
		return nil, false
	}
	return user, true
}

// formAvatar opens the avatar part of a multipart request. The returned
// close func is always safe to call.
func formAvatar(c *gin.Context) (*attachment.Upload, func(), error) {
	noop := func() {}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, noop, nil
	}

	fh, err := c.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &attachment.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
