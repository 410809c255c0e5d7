package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failure(t *testing.T, err error) *ValidationFailure {
	t.Helper()
	var v *ValidationFailure
	require.True(t, errors.As(err, &v), "want ValidationFailure, got %v", err)
	return v
}

func TestLogin(t *testing.T) {
	creds, err := Login{Username: "  ada ", Password: " secret "}.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "ada", creds.Username)
	assert.Equal(t, " secret ", creds.Password)

	_, err = Login{Username: "ada"}.Credentials()
	assert.Equal(t, MsgRequired, failure(t, err).Message)
	assert.True(t, IsValidation(err))
}

func TestLesson_RequiresAllFields(t *testing.T) {
	_, err := Lesson{Title: "Go", Description: "basics"}.NewLesson()
	v := failure(t, err)
	assert.Equal(t, "category", v.Field)
	assert.Equal(t, MsgRequired, v.Message)

	_, err = Lesson{Title: "<b></b>", Description: "d", Category: "c"}.NewLesson()
	assert.Equal(t, "title", failure(t, err).Field, "markup-only title counts as empty")
}

func TestLesson_Sanitises(t *testing.T) {
	l, err := Lesson{Title: "<b>Go</b> basics", Description: "Q&A <script>alert(1)</script>", Category: " lang ", IsPublic: true}.NewLesson()
	require.NoError(t, err)
	assert.Equal(t, "Go basics", l.Title)
	assert.Equal(t, "Q&A", l.Description)
	assert.Equal(t, "lang", l.Category)
	assert.True(t, l.IsPublic)
}

func TestLesson_Patch(t *testing.T) {
	p, err := Lesson{Title: "t", Description: "d", Category: "c"}.Patch(5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.LessonID)
	require.NotNil(t, p.IsPublic)
	assert.False(t, *p.IsPublic)

	_, err = Lesson{Title: "t", Description: "d", Category: "c"}.Patch(0)
	assert.True(t, IsValidation(err))
}

func TestFlashcard(t *testing.T) {
	c, err := Flashcard{Front: "2+2", Back: "<i>4</i>"}.NewFlashcard(3, 9)
	require.NoError(t, err)
	assert.Equal(t, "4", c.BackText)
	assert.Equal(t, int64(3), c.Lesson)
	assert.Equal(t, int64(9), c.CreatedBy)

	_, err = Flashcard{Front: "q"}.NewFlashcard(3, 9)
	assert.Equal(t, "back", failure(t, err).Field)

	_, err = Flashcard{Front: "q", Back: "a"}.NewFlashcard(0, 9)
	assert.True(t, IsValidation(err))
}

func TestProfile(t *testing.T) {
	cases := []struct {
		name string
		in   Profile
		msg  string
	}{
		{"empty", Profile{}, MsgNothingToSave},
		{"bad email", Profile{Email: "not-an-email"}, MsgEmail},
		{"short password", Profile{Password: "short", ConfirmPassword: "short"}, MsgPasswordShort},
		{"mismatch", Profile{Password: "longenough", ConfirmPassword: "different"}, MsgPasswordMatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Patch()
			assert.Equal(t, tc.msg, failure(t, err).Message)
		})
	}

	p, err := Profile{Email: "ada@example.com", Bio: " <p>hi</p> "}.Patch()
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "hi", p.Bio)
	assert.Empty(t, p.Password)
}

func TestValidationFailureError(t *testing.T) {
	assert.Equal(t, "title: "+MsgRequired, (&ValidationFailure{Field: "title", Message: MsgRequired}).Error())
	assert.Equal(t, MsgNothingToSave, (&ValidationFailure{Message: MsgNothingToSave}).Error())
}
