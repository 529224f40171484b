package uploads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"viralops/manager-go/internal/utils"
)

// APIConfig holds the OAuth credentials for the Data API uploader. The
// refresh token must carry the upload scope.
type APIConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// APIUploader publishes videos through the YouTube Data API v3 using a
// resumable insert.
type APIUploader struct {
	cfg APIConfig
}

func NewAPIUploader(cfg APIConfig) (*APIUploader, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("youtube api uploader needs client id, client secret and refresh token")
	}
	return &APIUploader{cfg: cfg}, nil
}

func (u *APIUploader) service(ctx context.Context) (*youtube.Service, error) {
	conf := &oauth2.Config{
		ClientID:     u.cfg.ClientID,
		ClientSecret: u.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
	return youtube.NewService(ctx, option.WithHTTPClient(client))
}

func (u *APIUploader) Upload(ctx context.Context, req Request) (Outcome, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("youtube service: %w", err)
	}

	status := &youtube.VideoStatus{PrivacyStatus: req.PrivacyStatus}
	if req.PublishAt != nil && req.PrivacyStatus == "public" {
		// Scheduled videos must sit private until the publish time.
		status.PrivacyStatus = "private"
		status.PublishAt = req.PublishAt.UTC().Format(time.RFC3339)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  req.CategoryID,
		},
		Status: status,
	}

	f, err := os.Open(req.VideoPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		utils.Info("api upload start", "title_len", len(req.Title), "size_mb", fmt.Sprintf("%.1f", float64(fi.Size())/1024/1024))
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)
	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return Outcome{}, fmt.Errorf("youtube upload: %w", err)
	}

	if req.ThumbnailPath != "" {
		if err := u.setThumbnail(ctx, svc, uploaded.Id, req.ThumbnailPath); err != nil {
			utils.Warn("thumbnail upload failed", "video_id", uploaded.Id, "err", err)
		}
	}

	utils.Info("api upload done", "video_id", uploaded.Id)
	return Outcome{VideoID: uploaded.Id, VideoURL: watchURL(uploaded.Id)}, nil
}

func (u *APIUploader) setThumbnail(ctx context.Context, svc *youtube.Service, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	return err
}
