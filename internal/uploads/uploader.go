package uploads

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Request carries everything an uploader needs to publish one video.
type Request struct {
	VideoPath     string     `json:"video_path"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Tags          []string   `json:"tags,omitempty"`
	CategoryID    string     `json:"category_id"`
	PrivacyStatus string     `json:"privacy_status"`
	PublishAt     *time.Time `json:"publish_at,omitempty"`
}

// Outcome is what a successful upload yields.
type Outcome struct {
	VideoID  string `json:"video_id"`
	VideoURL string `json:"video_url"`
}

// Uploader publishes a video to the platform. Implementations: the Data API
// client and the external command wrapper.
type Uploader interface {
	Upload(ctx context.Context, req Request) (Outcome, error)
}

func watchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

var videoIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID accepts a bare 11-character video id or any of the common
// YouTube URL shapes and returns the id, or "" when unrecognizable.
func ExtractVideoID(input string) string {
	input = strings.TrimSpace(input)
	if videoIDRe.MatchString(input) {
		return input
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return ""
	}
	switch parsed.Host {
	case "youtu.be":
		return strings.TrimPrefix(parsed.Path, "/")
	case "www.youtube.com", "youtube.com":
		if strings.HasPrefix(parsed.Path, "/watch") {
			return parsed.Query().Get("v")
		}
		if strings.HasPrefix(parsed.Path, "/embed/") {
			return strings.TrimPrefix(parsed.Path, "/embed/")
		}
		if strings.HasPrefix(parsed.Path, "/shorts/") {
			return strings.TrimPrefix(parsed.Path, "/shorts/")
		}
	}
	return ""
}
