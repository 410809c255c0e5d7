package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Backend is the set of QuizWhiz endpoints the client consumes. It is
// implemented by *Client and can be used for testing.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
	FetchUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, patch UserPatch) (User, error)
	DeleteUser(ctx context.Context, id int64) error
	PublicLessons(ctx context.Context) ([]Lesson, error)
	UserLessons(ctx context.Context, userID int64) ([]Lesson, error)
	SearchLessons(ctx context.Context, query string) ([]Lesson, error)
	TopCategories(ctx context.Context) ([]CategoryCount, error)
	CreateLesson(ctx context.Context, lesson NewLesson) (Lesson, error)
	UpdateLesson(ctx context.Context, patch LessonPatch) (Lesson, error)
	DeleteLesson(ctx context.Context, id int64) error
	FlashcardsByLesson(ctx context.Context, lessonID int64) ([]Flashcard, error)
	PublicFlashcards(ctx context.Context) ([]Flashcard, error)
	CreateFlashcard(ctx context.Context, card NewFlashcard) (Flashcard, error)
}

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

// RefreshPath is where the optional token refresh policy posts the refresh token.
const RefreshPath = "/users/token/refresh"

// Login exchanges credentials for tokens and the user profile.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var payload LoginResponse
	if err := c.Do(ctx, http.MethodPost, "/users/login", creds, &payload); err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return LoginResponse{}, &Failure{Kind: KindMalformed, Status: http.StatusOK, Method: http.MethodPost, Path: "/users/login", Message: "login response carried no access token"}
	}
	return payload, nil
}

// RefreshToken trades a refresh token for a new access token. It never
// triggers the unauthorized handler, so a rejected refresh cannot recurse.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, ErrNoSession
	}
	body := map[string]string{"refresh_token": refreshToken}
	var payload TokenPair
	if err := c.Do(ctx, http.MethodPost, RefreshPath, body, &payload, withoutUnauthorizedRetry()); err != nil {
		return TokenPair{}, err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return TokenPair{}, &Failure{Kind: KindMalformed, Status: http.StatusOK, Method: http.MethodPost, Path: RefreshPath, Message: "refresh response carried no access token"}
	}
	return payload, nil
}

// FetchUser resolves a user id to its profile.
func (c *Client) FetchUser(ctx context.Context, id int64) (User, error) {
	var payload User
	if err := c.Do(ctx, http.MethodGet, "/users/user/"+strconv.FormatInt(id, 10), nil, &payload, Authenticated()); err != nil {
		return User{}, err
	}
	if payload.ID == 0 {
		payload.ID = id
	}
	return payload, nil
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var payload []User
	if err := c.Do(ctx, http.MethodGet, "/users/list", nil, &payload, Authenticated()); err != nil {
		return nil, err
	}
	return payload, nil
}

// UpdateUser applies a partial profile update and returns the stored profile.
func (c *Client) UpdateUser(ctx context.Context, patch UserPatch) (User, error) {
	if patch.Empty() {
		return User{}, fmt.Errorf("user patch is empty")
	}
	var payload User
	if err := c.Do(ctx, http.MethodPatch, "/users/update", patch, &payload, Authenticated()); err != nil {
		return User{}, err
	}
	return payload, nil
}

// DeleteUser removes the account with the given id.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("user id required")
	}
	body := map[string]int64{"user_id": id}
	return c.Do(ctx, http.MethodDelete, "/users/delete", body, nil, Authenticated())
}

// PublicLessons lists lessons shared publicly.
func (c *Client) PublicLessons(ctx context.Context) ([]Lesson, error) {
	var payload []Lesson
	if err := c.Do(ctx, http.MethodGet, "/lessons/public", nil, &payload, Authenticated()); err != nil {
		return nil, err
	}
	return payload, nil
}

// UserLessons lists every lesson created by userID.
func (c *Client) UserLessons(ctx context.Context, userID int64) ([]Lesson, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id required")
	}
	var payload []Lesson
	if err := c.Do(ctx, http.MethodGet, "/lessons/user/"+strconv.FormatInt(userID, 10), nil, &payload, Authenticated()); err != nil {
		return nil, err
	}
	return payload, nil
}

// SearchLessons runs a keyword search.
func (c *Client) SearchLessons(ctx context.Context, query string) ([]Lesson, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	var payload []Lesson
	if err := c.Do(ctx, http.MethodGet, "/lessons/keywords/"+url.PathEscape(q), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// TopCategories returns aggregated lesson counts per category.
func (c *Client) TopCategories(ctx context.Context) ([]CategoryCount, error) {
	var payload []CategoryCount
	if err := c.Do(ctx, http.MethodGet, "/lessons/top-categories", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateLesson persists a new lesson owned by the session user.
func (c *Client) CreateLesson(ctx context.Context, lesson NewLesson) (Lesson, error) {
	var payload Lesson
	if err := c.Do(ctx, http.MethodPost, "/lessons/new", lesson, &payload, Authenticated()); err != nil {
		return Lesson{}, err
	}
	return payload, nil
}

// UpdateLesson applies a partial lesson update.
func (c *Client) UpdateLesson(ctx context.Context, patch LessonPatch) (Lesson, error) {
	if patch.LessonID <= 0 {
		return Lesson{}, fmt.Errorf("lesson id required")
	}
	var payload Lesson
	if err := c.Do(ctx, http.MethodPatch, "/lessons/update", patch, &payload, Authenticated()); err != nil {
		return Lesson{}, err
	}
	return payload, nil
}

// DeleteLesson removes a lesson by id.
func (c *Client) DeleteLesson(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("lesson id required")
	}
	body := map[string]int64{"lesson_id": id}
	return c.Do(ctx, http.MethodDelete, "/lessons/delete", body, nil, Authenticated())
}

// FlashcardsByLesson lists the cards of a lesson.
func (c *Client) FlashcardsByLesson(ctx context.Context, lessonID int64) ([]Flashcard, error) {
	if lessonID <= 0 {
		return nil, fmt.Errorf("lesson id required")
	}
	var payload []Flashcard
	if err := c.Do(ctx, http.MethodGet, "/flashcards/by-lesson/"+strconv.FormatInt(lessonID, 10), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// PublicFlashcards lists the public card pool.
func (c *Client) PublicFlashcards(ctx context.Context) ([]Flashcard, error) {
	var payload []Flashcard
	if err := c.Do(ctx, http.MethodGet, "/flashcards/public/", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateFlashcard adds a card to a lesson.
func (c *Client) CreateFlashcard(ctx context.Context, card NewFlashcard) (Flashcard, error) {
	if card.Lesson <= 0 {
		return Flashcard{}, fmt.Errorf("lesson id required")
	}
	var payload Flashcard
	if err := c.Do(ctx, http.MethodPost, "/flashcards/", card, &payload); err != nil {
		return Flashcard{}, err
	}
	return payload, nil
}
