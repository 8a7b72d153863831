package domain

import "time"

// User represents a registered account. Credential and recovery fields are
// only populated inside the service layer.
type User struct {
	ID                  int64
	Name                string
	Email               string
	PasswordHash        string
	ResetPasswordToken  string
	ResetPasswordSentAt *time.Time
	RememberCreatedAt   *time.Time
	SignInCount         int
	CurrentSignInAt     *time.Time
	LastSignInAt        *time.Time
	CurrentSignInIP     string
	LastSignInIP        string
	Avatar              Avatar
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Avatar describes the uploaded profile picture. KeyPrefix is empty when the
// user never uploaded one.
type Avatar struct {
	FileName    string
	ContentType string
	Size        int64
	KeyPrefix   string
	UpdatedAt   *time.Time
}

func (a Avatar) Present() bool {
	return a.KeyPrefix != ""
}

// SignIn records a successful sign-in the way trackable accounts do: the
// current values shift into the last-* fields.
func (u *User) SignIn(at time.Time, ip string) {
	if u.CurrentSignInAt != nil {
		prev := *u.CurrentSignInAt
		u.LastSignInAt = &prev
	} else {
		u.LastSignInAt = &at
	}
	if u.CurrentSignInIP != "" {
		u.LastSignInIP = u.CurrentSignInIP
	} else {
		u.LastSignInIP = ip
	}
	u.CurrentSignInAt = &at
	u.CurrentSignInIP = ip
	u.SignInCount++
}
