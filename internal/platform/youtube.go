package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	configs "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type mediaSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// YoutubeAdapter uploads the first media reference of a post as a video.
type YoutubeAdapter struct {
	media       mediaSource
	tokenSource oauth2.TokenSource
	privacy     string
}

func NewYoutubeAdapter(cfg configs.Youtube, media mediaSource) *YoutubeAdapter {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{youtube.YoutubeUploadScope},
		Endpoint:     google.Endpoint,
	}
	return &YoutubeAdapter{
		media:       media,
		tokenSource: conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken}),
		privacy:     "public",
	}
}

func (a *YoutubeAdapter) Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResponse, error) {
	if len(req.MediaURLs) == 0 {
		return nil, errors.New("youtube requires a video")
	}

	data, err := a.media.Fetch(ctx, req.MediaURLs[0])
	if err != nil {
		return nil, err
	}
	if !filetype.IsVideo(data) {
		return nil, fmt.Errorf("media %s is not a video", req.MediaURLs[0])
	}

	service, err := youtube.NewService(ctx, option.WithTokenSource(a.tokenSource))
	if err != nil {
		slog.Info("Error creating YouTube service", "error", err)
		return nil, err
	}

	title, _ := req.Extra["title"].(string)
	if title == "" {
		title = lo.Ellipsis(req.Text, 100)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Description: req.Text,
			Title:       title,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: a.privacy,
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(bytes.NewReader(data)).Context(ctx).Do()
	if err != nil {
		slog.Info("Error uploading video", "error", err)
		return nil, err
	}

	return &models.PublishResponse{
		PostID: response.Id,
		URL:    "https://youtu.be/" + response.Id,
	}, nil
}
