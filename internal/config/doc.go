// Package config loads QuizWhiz client settings.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/quizwhiz/config.toml (default)
//  3. If the file doesn't exist, start from defaults
//  4. Apply QUIZWHIZ_* environment variables on top
//
// LoadDotEnv can be called first to populate the environment from a .env
// file. Variables already present in the environment win over the file.
//
// # TOML Format
//
//	backend_url = "http://127.0.0.1:8000"
//	timeout_seconds = 10
//	max_attempts = 3
//	refresh_seconds = 30
//	session_store = "file"     # file, sqlite or memory
//	session_path = "~/.config/quizwhiz/session.toml"
//	on_unauthorized = "clear"  # clear or refresh
//	log_level = "info"
//	log_file = "~/.local/state/quizwhiz/quizwhiz.log"
//	theme = "Nightfox"
//
// Every key is optional. Environment overrides use the upper-cased key with
// the QUIZWHIZ_ prefix, e.g. QUIZWHIZ_BACKEND_URL. Tilde expansion is
// applied to session_path and log_file.
//
// Missing config files are NOT an error. Malformed TOML, negative numbers
// and unknown session stores are.
package config
