package uploads

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"viralops/manager-go/internal/utils"
)

// CLIUploader shells out to an external upload command (the youtube-upload
// tool) and parses the video id from its output. Useful on hosts where API
// credentials live inside the tool's own config.
type CLIUploader struct {
	// Command is the executable, e.g. "youtube-upload" or a wrapper script.
	Command string
}

func NewCLIUploader(command string) (*CLIUploader, error) {
	if command == "" {
		return nil, errors.New("upload command not configured")
	}
	return &CLIUploader{Command: command}, nil
}

var uploadedIDRe = regexp.MustCompile(`Video id '([^']+)' was successfully uploaded`)

func (u *CLIUploader) Upload(ctx context.Context, req Request) (Outcome, error) {
	command := fmt.Sprintf(
		"%s --file=%s --title=%s --description=%s --category=%s --keywords=\"%s\" --privacyStatus=%s",
		u.Command,
		utils.ShellEscape(req.VideoPath),
		utils.ShellEscape(req.Title),
		utils.ShellEscape(req.Description),
		utils.ShellEscape(req.CategoryID),
		strings.ReplaceAll(strings.Join(req.Tags, ","), `"`, `\"`),
		utils.ShellEscape(req.PrivacyStatus),
	)
	if req.ThumbnailPath != "" {
		command += " --thumbnail=" + utils.ShellEscape(req.ThumbnailPath)
	}
	if req.PublishAt != nil {
		command += " --publish-at=" + utils.ShellEscape(req.PublishAt.UTC().Format("2006-01-02T15:04:05.0Z"))
	}

	output, err := utils.RunCommand(ctx, command)
	if err != nil {
		return Outcome{}, err
	}

	matches := uploadedIDRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return Outcome{}, errors.New("video id not found in upload output")
	}
	videoID := matches[1]
	return Outcome{VideoID: videoID, VideoURL: watchURL(videoID)}, nil
}
