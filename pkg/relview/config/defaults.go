package config

// Default values applied when neither the config file, environment nor
// flags say otherwise.
const (
	// DefaultConcurrency is the download concurrency.
	DefaultConcurrency = 1

	// DefaultRetries is how often each download is attempted.
	DefaultRetries = 3

	// DefaultRetentionDays is how long sync journal entries are kept.
	DefaultRetentionDays = 30

	// DefaultGitHubAPI is the releases API endpoint.
	DefaultGitHubAPI = "https://api.github.com"
)

// DefaultBuildCommand builds the static site from a config document.
var DefaultBuildCommand = []string{"relview-build"}
