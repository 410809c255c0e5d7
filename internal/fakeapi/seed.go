package fakeapi

import "github.com/five82/quizwhiz/internal/api"

// Demo credentials created by Seed.
const (
	DemoUser      = "demo"
	DemoAdmin     = "admin"
	DemoPassword  = "password123"
	demoUserID    = 2
	demoAdminID   = 1
	demoCreatorID = 3
)

// Seed fills the server with a small data set for offline use: an admin, a
// regular user, another author, public and private lessons, and cards.
func (s *Server) Seed() {
	s.AddUser(api.User{ID: demoAdminID, Username: DemoAdmin, Email: "admin@example.com", Role: api.RoleAdmin}, DemoPassword)
	s.AddUser(api.User{ID: demoUserID, Username: DemoUser, Email: "demo@example.com", Bio: "Learning things."}, DemoPassword)
	s.AddUser(api.User{ID: demoCreatorID, Username: "marie", Email: "marie@example.com"}, DemoPassword)

	goLesson := s.AddLesson(api.Lesson{Title: "Go basics", Description: "Syntax and types", Category: "programming", IsPublic: true, CreatedBy: demoCreatorID})
	s.AddLesson(api.Lesson{Title: "JavaScript closures", Description: "Scopes and closures", Category: "programming", IsPublic: true, CreatedBy: demoCreatorID})
	capitals := s.AddLesson(api.Lesson{Title: "European capitals", Description: "Countries and their capitals", Category: "geography", IsPublic: true, CreatedBy: demoUserID})
	s.AddLesson(api.Lesson{Title: "My notes", Description: "Private scratch lesson", Category: "misc", CreatedBy: demoUserID})

	for _, c := range [][2]string{
		{"Zero value of an int?", "0"},
		{"Keyword to start a goroutine?", "go"},
		{"Built-in for slice length?", "len"},
	} {
		s.AddFlashcard(api.Flashcard{FrontText: c[0], BackText: c[1], Lesson: goLesson.ID, CreatedBy: demoCreatorID})
	}
	for _, c := range [][2]string{
		{"France", "Paris"},
		{"Portugal", "Lisbon"},
		{"Finland", "Helsinki"},
	} {
		s.AddFlashcard(api.Flashcard{FrontText: c[0], BackText: c[1], Lesson: capitals.ID, CreatedBy: demoUserID})
	}
}
