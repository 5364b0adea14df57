// Package version holds the StoryEngine release version.
package version

// Version is reported by the player on startup and on /health.
// Override at build time with:
//
//	go build -ldflags "-X github.com/AaronLay10/StoryEngine/internal/version.Version=x.y.z" ./cmd/storyplayer
var Version = "0.1.0"
