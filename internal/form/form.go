// Package form validates and sanitises user input before it reaches the
// backend. A form that fails validation never causes a network call.
package form

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/five82/quizwhiz/internal/api"
)

// Messages shown for the common failures.
const (
	MsgRequired      = "Please fill in all required fields"
	MsgEmail         = "Please enter a valid email"
	MsgPasswordShort = "Password must be at least 8 characters"
	MsgPasswordMatch = "Passwords do not match"
	MsgNothingToSave = "Nothing to update"
)

// ValidationFailure reports the first invalid field of a form.
type ValidationFailure struct {
	Field   string
	Message string
}

func (v *ValidationFailure) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// IsValidation reports whether err is a ValidationFailure.
func IsValidation(err error) bool {
	var v *ValidationFailure
	return errors.As(err, &v)
}

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	strict   = bluemonday.StrictPolicy()
)

// Login is the sign-in form.
type Login struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Credentials validates the form. Passwords are sent verbatim.
func (f Login) Credentials() (api.Credentials, error) {
	f.Username = strings.TrimSpace(f.Username)
	if err := check(f); err != nil {
		return api.Credentials{}, err
	}
	return api.Credentials{Username: f.Username, Password: f.Password}, nil
}

// Lesson is the create/update lesson form.
type Lesson struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"required,max=2000"`
	Category    string `validate:"required,max=100"`
	IsPublic    bool
}

func (f Lesson) clean() Lesson {
	f.Title = Sanitize(f.Title)
	f.Description = Sanitize(f.Description)
	f.Category = Sanitize(f.Category)
	return f
}

// NewLesson validates the form for creation.
func (f Lesson) NewLesson() (api.NewLesson, error) {
	f = f.clean()
	if err := check(f); err != nil {
		return api.NewLesson{}, err
	}
	return api.NewLesson{Title: f.Title, Description: f.Description, Category: f.Category, IsPublic: f.IsPublic}, nil
}

// Patch validates the form for updating lesson id. Every field is sent.
func (f Lesson) Patch(id int64) (api.LessonPatch, error) {
	if id <= 0 {
		return api.LessonPatch{}, &ValidationFailure{Field: "lesson", Message: "missing lesson id"}
	}
	f = f.clean()
	if err := check(f); err != nil {
		return api.LessonPatch{}, err
	}
	return api.LessonPatch{
		LessonID:    id,
		Title:       &f.Title,
		Description: &f.Description,
		Category:    &f.Category,
		IsPublic:    &f.IsPublic,
	}, nil
}

// Flashcard is the create-card form.
type Flashcard struct {
	Front string `validate:"required,max=1000"`
	Back  string `validate:"required,max=1000"`
}

// NewFlashcard validates the form for a card in lessonID created by creatorID.
func (f Flashcard) NewFlashcard(lessonID, creatorID int64) (api.NewFlashcard, error) {
	f.Front = Sanitize(f.Front)
	f.Back = Sanitize(f.Back)
	if err := check(f); err != nil {
		return api.NewFlashcard{}, err
	}
	if lessonID <= 0 {
		return api.NewFlashcard{}, &ValidationFailure{Field: "lesson", Message: "missing lesson id"}
	}
	return api.NewFlashcard{FrontText: f.Front, BackText: f.Back, Lesson: lessonID, CreatedBy: creatorID}, nil
}

// Profile is the settings form. Blank fields are left unchanged.
type Profile struct {
	Username        string `validate:"omitempty,max=150"`
	Email           string `validate:"omitempty,email"`
	Password        string `validate:"omitempty,min=8"`
	ConfirmPassword string `validate:"eqfield=Password"`
	Bio             string `validate:"omitempty,max=500"`
}

// Patch validates the form. A form with nothing filled in is rejected.
func (f Profile) Patch() (api.UserPatch, error) {
	f.Username = Sanitize(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Bio = Sanitize(f.Bio)
	if err := check(f); err != nil {
		return api.UserPatch{}, err
	}
	patch := api.UserPatch{Username: f.Username, Email: f.Email, Password: f.Password, Bio: f.Bio}
	if patch.Empty() {
		return api.UserPatch{}, &ValidationFailure{Message: MsgNothingToSave}
	}
	return patch, nil
}

// Sanitize strips all markup from free text and trims it.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return &ValidationFailure{Message: err.Error()}
	}
	fe := fields[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationFailure{Field: field, Message: MsgRequired}
	case "email":
		return &ValidationFailure{Field: field, Message: MsgEmail}
	case "eqfield":
		return &ValidationFailure{Field: field, Message: MsgPasswordMatch}
	case "min":
		if fe.Field() == "Password" {
			return &ValidationFailure{Field: field, Message: MsgPasswordShort}
		}
		return &ValidationFailure{Field: field, Message: fmt.Sprintf("must be at least %s characters", fe.Param())}
	case "max":
		return &ValidationFailure{Field: field, Message: fmt.Sprintf("must be at most %s characters", fe.Param())}
	default:
		return &ValidationFailure{Field: field, Message: "is invalid"}
	}
}
