// Package youtube is the ingestion adapter for the YouTube Data API v3.
// It normalizes channel and video responses into the canonical record
// shapes the rest of the system stores.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

var (
	// ErrNotConfigured means no API key is available for the caller.
	ErrNotConfigured = errors.New("youtube api key not configured")
	// ErrNotFound means the requested channel or video does not exist upstream.
	ErrNotFound = errors.New("not found on youtube")
	// ErrUpstream wraps transport and non-2xx failures from the API.
	ErrUpstream = errors.New("youtube api unavailable")
)

// ChannelInfo is the normalized channel record.
type ChannelInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Username        string `json:"username"`
	Description     string `json:"description"`
	Avatar          string `json:"avatar"`
	SubscriberCount int64  `json:"subscriber_count"`
	VideoCount      int64  `json:"video_count"`
	ViewCount       int64  `json:"view_count"`
}

// VideoInfo is the normalized video record.
type VideoInfo struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Thumbnail       string    `json:"thumbnail"`
	PublishedAt     time.Time `json:"published_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	ChannelID       string    `json:"channel_id"`
	ChannelTitle    string    `json:"channel_title"`
}

// Client calls the YouTube Data API with a fixed key.
type Client struct {
	rc     *resty.Client
	apiKey string
}

// New creates a Client. baseURL is overridable for tests; empty means the
// real API.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		rc:     resty.New().SetBaseURL(baseURL).SetTimeout(15 * time.Second),
		apiKey: apiKey,
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool { return c.apiKey != "" }

// --- wire shapes (only the fields we read) ---

type thumbnails struct {
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
	High struct {
		URL string `json:"url"`
	} `json:"high"`
	Maxres struct {
		URL string `json:"url"`
	} `json:"maxres"`
}

type channelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			CustomURL   string     `json:"customUrl"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount       string `json:"viewCount"`
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemList struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		PublishedAt  time.Time  `json:"publishedAt"`
		ChannelID    string     `json:"channelId"`
		ChannelTitle string     `json:"channelTitle"`
		Thumbnails   thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

type videoList struct {
	Items []videoItem `json:"items"`
}

type searchList struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
		} `json:"id"`
		Snippet struct {
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("key", c.apiKey).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Channel looks up a channel by @handle, falling back to a raw channel ID.
func (c *Client) Channel(ctx context.Context, handle string) (*ChannelInfo, error) {
	var list channelList
	err := c.get(ctx, "/channels", map[string]string{
		"part":      "snippet,statistics",
		"forHandle": handle,
	}, &list)
	if err != nil {
		return nil, err
	}

	if len(list.Items) == 0 {
		list = channelList{}
		err = c.get(ctx, "/channels", map[string]string{
			"part": "snippet,statistics",
			"id":   handle,
		}, &list)
		if err != nil {
			return nil, err
		}
	}
	if len(list.Items) == 0 {
		return nil, ErrNotFound
	}

	ch := list.Items[0]
	username := handle
	if ch.Snippet.CustomURL != "" {
		username = strings.TrimPrefix(ch.Snippet.CustomURL, "@")
	}
	return &ChannelInfo{
		ID:              ch.ID,
		Title:           ch.Snippet.Title,
		Username:        username,
		Description:     ch.Snippet.Description,
		Avatar:          ch.Snippet.Thumbnails.Default.URL,
		SubscriberCount: atoi(ch.Statistics.SubscriberCount),
		VideoCount:      atoi(ch.Statistics.VideoCount),
		ViewCount:       atoi(ch.Statistics.ViewCount),
	}, nil
}

// ChannelVideos returns up to limit of the channel's most recent uploads
// with full statistics. Three calls: channel → uploads playlist → videos.
func (c *Client) ChannelVideos(ctx context.Context, channelID string, limit int) ([]VideoInfo, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	var chans channelList
	if err := c.get(ctx, "/channels", map[string]string{
		"part": "contentDetails",
		"id":   channelID,
	}, &chans); err != nil {
		return nil, err
	}
	if len(chans.Items) == 0 {
		return nil, ErrNotFound
	}
	uploads := chans.Items[0].ContentDetails.RelatedPlaylists.Uploads

	var playlist playlistItemList
	if err := c.get(ctx, "/playlistItems", map[string]string{
		"part":       "contentDetails",
		"playlistId": uploads,
		"maxResults": strconv.Itoa(limit),
	}, &playlist); err != nil {
		return nil, err
	}
	if len(playlist.Items) == 0 {
		return []VideoInfo{}, nil
	}

	ids := make([]string, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}

	var vids videoList
	if err := c.get(ctx, "/videos", map[string]string{
		"part": "snippet,contentDetails,statistics",
		"id":   strings.Join(ids, ","),
	}, &vids); err != nil {
		return nil, err
	}

	out := make([]VideoInfo, 0, len(vids.Items))
	for _, v := range vids.Items {
		out = append(out, normalizeVideo(v))
	}
	return out, nil
}

// Video fetches a single video by ID.
func (c *Client) Video(ctx context.Context, id string) (*VideoInfo, error) {
	var vids videoList
	if err := c.get(ctx, "/videos", map[string]string{
		"part": "snippet,contentDetails,statistics",
		"id":   id,
	}, &vids); err != nil {
		return nil, err
	}
	if len(vids.Items) == 0 {
		return nil, ErrNotFound
	}
	v := normalizeVideo(vids.Items[0])
	return &v, nil
}

// SearchChannels finds up to 10 channels matching the query, with stats.
func (c *Client) SearchChannels(ctx context.Context, query string) ([]ChannelInfo, error) {
	var search searchList
	if err := c.get(ctx, "/search", map[string]string{
		"part":       "snippet",
		"type":       "channel",
		"q":          query,
		"maxResults": "10",
	}, &search); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		id := item.Snippet.ChannelID
		if id == "" {
			id = item.ID.ChannelID
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []ChannelInfo{}, nil
	}

	var chans channelList
	if err := c.get(ctx, "/channels", map[string]string{
		"part": "snippet,statistics",
		"id":   strings.Join(ids, ","),
	}, &chans); err != nil {
		return nil, err
	}

	out := make([]ChannelInfo, 0, len(chans.Items))
	for _, ch := range chans.Items {
		username := strings.TrimPrefix(ch.Snippet.CustomURL, "@")
		if username == "" {
			username = ch.Snippet.Title
		}
		desc := ch.Snippet.Description
		if len(desc) > 200 {
			desc = desc[:200]
		}
		out = append(out, ChannelInfo{
			ID:              ch.ID,
			Title:           ch.Snippet.Title,
			Username:        username,
			Description:     desc,
			Avatar:          ch.Snippet.Thumbnails.Default.URL,
			SubscriberCount: atoi(ch.Statistics.SubscriberCount),
			VideoCount:      atoi(ch.Statistics.VideoCount),
			ViewCount:       atoi(ch.Statistics.ViewCount),
		})
	}
	return out, nil
}

func normalizeVideo(v videoItem) VideoInfo {
	desc := v.Snippet.Description
	if len(desc) > 500 {
		desc = desc[:500]
	}
	thumb := v.Snippet.Thumbnails.Maxres.URL
	if thumb == "" {
		thumb = v.Snippet.Thumbnails.High.URL
	}
	if thumb == "" {
		thumb = v.Snippet.Thumbnails.Default.URL
	}
	return VideoInfo{
		ID:              v.ID,
		Title:           v.Snippet.Title,
		Description:     desc,
		Thumbnail:       thumb,
		PublishedAt:     v.Snippet.PublishedAt,
		DurationSeconds: ParseISODuration(v.ContentDetails.Duration),
		ViewCount:       atoi(v.Statistics.ViewCount),
		LikeCount:       atoi(v.Statistics.LikeCount),
		CommentCount:    atoi(v.Statistics.CommentCount),
		ChannelID:       v.Snippet.ChannelID,
		ChannelTitle:    v.Snippet.ChannelTitle,
	}
}

// Anchored on the T separator of the PnDTnHnMnS grammar: only the H/M/S
// components matter here, so P1DT1H still yields its hour part.
var isoDurationRe = regexp.MustCompile(`T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration converts an ISO-8601 duration like "PT1H2M10S" to
// seconds. Unmatched components default to 0; malformed input parses to 0.
func ParseISODuration(iso string) int64 {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
}

// atoi coerces the API's string-typed counters to int64, treating missing
// or malformed values as 0.
func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
