package api

import (
	"encoding/json"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// Role is the capability level of a user as reported by the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Normalize maps unknown or missing roles to RoleUser.
func (r Role) Normalize() Role {
	switch Role(strings.ToLower(strings.TrimSpace(string(r)))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// User mirrors the profile payload returned by /users/user/{id}.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// IsAdmin reports whether the backend granted the admin role.
func (u User) IsAdmin() bool { return u.Role.Normalize() == RoleAdmin }

func (u User) RecordID() int64  { return u.ID }
func (u User) CreatorID() int64 { return u.ID }

// Lesson is a titled collection of flashcards.
type Lesson struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublic    bool   `json:"is_public"`
	CreatedBy   int64  `json:"created_by"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func (l Lesson) RecordID() int64  { return l.ID }
func (l Lesson) CreatorID() int64 { return l.CreatedBy }

// Updated returns the parsed UpdatedAt timestamp.
func (l Lesson) Updated() time.Time { return parseTime(l.UpdatedAt) }

// Flashcard is a single front/back card belonging to a lesson.
type Flashcard struct {
	ID        int64  `json:"id"`
	FrontText string `json:"front_text"`
	BackText  string `json:"back_text"`
	Lesson    int64  `json:"lesson"`
	CreatedBy int64  `json:"created_by"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func (f Flashcard) RecordID() int64  { return f.ID }
func (f Flashcard) CreatorID() int64 { return f.CreatedBy }

// Updated returns the parsed UpdatedAt timestamp.
func (f Flashcard) Updated() time.Time { return parseTime(f.UpdatedAt) }

// CategoryCount is one row of /lessons/top-categories.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Credentials is the /users/login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by /users/login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// UnmarshalJSON accepts both the snake_case token names and the short
// "access"/"refresh" names some backend builds emit.
func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Access       string `json:"access"`
		Refresh      string `json:"refresh"`
		User         User   `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AccessToken = firstNonEmpty(raw.AccessToken, raw.Access)
	r.RefreshToken = firstNonEmpty(raw.RefreshToken, raw.Refresh)
	r.User = raw.User
	return nil
}

// TokenPair is returned by the token refresh endpoint.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NewLesson is the /lessons/new request body.
type NewLesson struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublic    bool   `json:"is_public"`
}

// LessonPatch is the /lessons/update request body. Nil fields are left unchanged.
type LessonPatch struct {
	LessonID    int64   `json:"lesson_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// NewFlashcard is the /flashcards/ request body.
type NewFlashcard struct {
	FrontText string `json:"front_text"`
	BackText  string `json:"back_text"`
	Lesson    int64  `json:"lesson"`
	CreatedBy int64  `json:"created_by"`
}

// UserPatch is the /users/update request body. Empty fields are omitted.
// UserID is only set by administrators editing another account.
type UserPatch struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == "" && p.Email == "" && p.Password == "" && p.Bio == ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
