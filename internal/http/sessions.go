package http

import (
	"github.com/gin-gonic/gin"

	"tweeter/internal/domain"
	"tweeter/internal/service"
)

type registrationRequest struct {
	Name                 string `json:"name" form:"name"`
	Email                string `json:"email" form:"email"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

type signInRequest struct {
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RememberMe bool   `json:"remember_me" form:"remember_me"`
}

type passwordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Token                string `json:"reset_password_token" form:"reset_password_token"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

type changePasswordRequest struct {
	CurrentPassword      string `json:"current_password" form:"current_password"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

func (h *Handler) newRegistration(c *gin.Context) {
	h.render(c, gin.H{"user": userForm{}})
}

func (h *Handler) register(c *gin.Context) {
	var req registrationRequest
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

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Avatar:               avatar,
	})
	if err != nil {
		h.fail(c, err, "user", userForm{Name: req.Name, Email: req.Email})
		return
	}

	h.startSession(c, user, false, userPath(user.ID), "Welcome! You have signed up successfully.")
}

func (h *Handler) newSession(c *gin.Context) {
	h.render(c, gin.H{"user": userForm{}})
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password, c.ClientIP(), req.RememberMe)
	if err != nil {
		h.fail(c, err, "user", userForm{Email: req.Email})
		return
	}

	h.startSession(c, user, req.RememberMe, "/", "Signed in successfully.")
}

func (h *Handler) signOut(c *gin.Context) {
	if session := currentSession(c); session != nil {
		if err := h.auth.SignOut(c.Request.Context(), session.ID); err != nil {
			h.fail(c, err, "session", nil)
			return
		}
	}
	h.clearSessionCookie(c)
	h.redirect(c, "/", flashNotice, "Signed out successfully.")
}

func (h *Handler) newPassword(c *gin.Context) {
	h.render(c, gin.H{"user": userForm{}})
}

func (h *Handler) requestPasswordReset(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err, "user", userForm{Email: req.Email})
		return
	}
	h.redirect(c, "/users/sign_in", flashNotice,
		"You will receive an email with instructions on how to reset your password in a few minutes.")
}

func (h *Handler) editPassword(c *gin.Context) {
	h.render(c, gin.H{"user": gin.H{"reset_password_token": c.Query("reset_password_token")}})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Token:                req.Token,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.fail(c, err, "user", gin.H{"reset_password_token": req.Token})
		return
	}

	h.startSession(c, user, false, "/", "Your password has been changed successfully. You are now signed in.")
}

func (h *Handler) editRegistration(c *gin.Context) {
	h.render(c, gin.H{"user": h.userToResponse(c.Request.Context(), *currentUser(c))})
}

func (h *Handler) updateRegistration(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	user := currentUser(c)
	err := h.users.ChangePassword(c.Request.Context(), user.ID, service.ChangePasswordInput{
		CurrentPassword:      req.CurrentPassword,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.fail(c, err, "user", userForm{Name: user.Name, Email: user.Email})
		return
	}
	h.redirect(c, "/", flashNotice, "Your account has been updated successfully.")
}

// startSession signs the user in, sets the session cookie and redirects.
// The token is also returned in the body for API clients.
func (h *Handler) startSession(c *gin.Context, user *domain.User, remember bool, location, notice string) {
	session, err := h.auth.SignIn(c.Request.Context(), user.ID, remember)
	if err != nil {
		h.fail(c, err, "session", nil)
		return
	}
	h.setSessionCookie(c, session)
	h.redirectWith(c, location, flashNotice, notice, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}
