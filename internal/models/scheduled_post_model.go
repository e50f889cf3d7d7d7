package models

import (
	"fmt"
	"time"
)

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformReddit    Platform = "reddit"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTiktok    Platform = "tiktok"
	PlatformYoutube   Platform = "youtube"
)

// Platforms is the closed set of destinations a post can target.
var Platforms = []Platform{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformReddit,
	PlatformFacebook,
	PlatformInstagram,
	PlatformTiktok,
	PlatformYoutube,
}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

type PostStatus string

const (
	PostStatusPending   PostStatus = "pending"
	PostStatusQueued    PostStatus = "queued"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
	PostStatusPartial   PostStatus = "partial"
	PostStatusCancelled PostStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s PostStatus) Terminal() bool {
	switch s {
	case PostStatusPublished, PostStatusFailed, PostStatusPartial, PostStatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the forward-only lifecycle:
// pending -> queued -> {published, partial, failed}, and cancelled from pending or queued.
func (s PostStatus) CanTransition(to PostStatus) bool {
	switch s {
	case PostStatusPending:
		return to == PostStatusQueued || to == PostStatusCancelled || to.executed()
	case PostStatusQueued:
		return to == PostStatusCancelled || to.executed()
	}
	return false
}

func (s PostStatus) executed() bool {
	return s == PostStatusPublished || s == PostStatusPartial || s == PostStatusFailed
}

type PostPayload struct {
	Text        string                     `json:"text"`
	MediaURLs   []string                   `json:"media_urls"`
	PerPlatform map[Platform]PlatformExtra `json:"per_platform,omitempty"`
}

// PlatformExtra is a platform-specific fragment merged over the base payload.
type PlatformExtra map[string]any

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

type PlatformResult struct {
	Platform Platform     `json:"platform"`
	PostID   string       `json:"post_id,omitempty"`
	URL      string       `json:"url,omitempty"`
	Status   ResultStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
}

type ScheduledPost struct {
	ID          string           `db:"id" json:"id"`
	OwnerID     string           `db:"owner_id" json:"owner_id"`
	ProjectID   *string          `db:"project_id" json:"project_id,omitempty"`
	Platforms   []Platform       `db:"platforms" json:"platforms"`
	Payload     PostPayload      `db:"payload" json:"payload"`
	ScheduledAt time.Time        `db:"scheduled_at" json:"scheduled_at"`
	Status      PostStatus       `db:"status" json:"status"`
	JobID       string           `db:"job_id" json:"job_id,omitempty"`
	Results     []PlatformResult `db:"results" json:"results"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Override keys that replace base payload fields instead of riding in Extra.
const (
	overrideText      = "text"
	overrideMediaURLs = "media_urls"
)

// PayloadFor returns the content sent to one platform. The platform's
// override replaces text and media_urls; its other keys land in Extra.
func (p *ScheduledPost) PayloadFor(platform Platform) PublishRequest {
	req := PublishRequest{
		PostID:    p.ID,
		Platform:  platform,
		Text:      p.Payload.Text,
		MediaURLs: p.Payload.MediaURLs,
	}

	override := p.Payload.PerPlatform[platform]
	for key, value := range override {
		switch key {
		case overrideText:
			if text, ok := value.(string); ok {
				req.Text = text
				continue
			}
		case overrideMediaURLs:
			if urls, ok := mediaURLs(value); ok {
				req.MediaURLs = urls
				continue
			}
		}
		if req.Extra == nil {
			req.Extra = make(PlatformExtra, len(override))
		}
		req.Extra[key] = value
	}
	return req
}

// mediaURLs accepts both typed slices and the []any produced by decoding JSON.
func mediaURLs(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			urls = append(urls, s)
		}
		return urls, true
	}
	return nil, false
}

// PublishRequest is what a platform adapter receives.
type PublishRequest struct {
	PostID    string        `json:"scheduled_post_id"`
	Platform  Platform      `json:"platform"`
	Text      string        `json:"text"`
	MediaURLs []string      `json:"media_urls"`
	Extra     PlatformExtra `json:"extra,omitempty"`
}

// PublishResponse is what a platform adapter returns on success.
type PublishResponse struct {
	PostID string         `json:"post_id,omitempty"`
	URL    string         `json:"url,omitempty"`
	Raw    map[string]any `json:"raw,omitempty"`
}

type CalendarEvent struct {
	ID           string     `json:"id"`
	TitleExcerpt string     `json:"title"`
	Start        time.Time  `json:"start"`
	Platforms    []Platform `json:"platforms"`
	Status       PostStatus `json:"status"`
	ColorHint    string     `json:"color"`
}

func ColorHint(status PostStatus) string {
	switch status {
	case PostStatusPublished:
		return "green"
	case PostStatusFailed:
		return "red"
	case PostStatusPending:
		return "blue"
	default:
		return "gray"
	}
}

type TransitionError struct {
	From PostStatus
	To   PostStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
