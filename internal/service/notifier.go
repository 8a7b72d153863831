package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"tweeter/internal/domain"
)

// ResetNotifier delivers password reset instructions to a user.
type ResetNotifier interface {
	SendResetPasswordInstructions(ctx context.Context, user *domain.User, token string) error
}

// LogNotifier writes reset links to the log instead of sending mail.
type LogNotifier struct {
	logger  *logrus.Logger
	baseURL string
}

func NewLogNotifier(logger *logrus.Logger, baseURL string) *LogNotifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

func (n *LogNotifier) SendResetPasswordInstructions(_ context.Context, user *domain.User, token string) error {
	n.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"url":     n.baseURL + "/users/password/edit?reset_password_token=" + token,
	}).Info("reset password instructions")
	return nil
}
