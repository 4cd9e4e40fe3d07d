// Package tracker turns pasted URLs into tracked accounts and videos and
// keeps their stats fresh against the upstream platforms.
package tracker

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"warroom/analytics"
	"warroom/db"
	"warroom/settings"
	"warroom/youtube"
)

// Syncer pulls channel and video stats from YouTube into the local store.
// Store is optional; when present, thumbnails are mirrored into the bucket.
type Syncer struct {
	DB       *db.CompatDB
	Settings *settings.Store
	Store    *minio.Client
	Bucket   string

	// BaseURL overrides the YouTube API endpoint in tests.
	BaseURL string
}

func (s *Syncer) client(ctx context.Context, userID string) *youtube.Client {
	key := s.Settings.Credential(ctx, userID, "youtube_api_key", "YOUTUBE_API_KEY")
	return youtube.New(key, s.BaseURL)
}

// SyncAccount refreshes one tracked account: channel stats, its latest
// videos with engagement and nx scores, and a point-in-time snapshot.
// Returns the number of videos upserted.
func (s *Syncer) SyncAccount(ctx context.Context, userID, accountID string) (int, error) {
	var platform, username string
	var channelID sql.NullString
	err := s.DB.QueryRowContext(ctx,
		"SELECT platform, username, platform_account_id FROM tracked_accounts WHERE id = ? AND user_id = ?",
		accountID, userID).Scan(&platform, &username, &channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	if platform != "youtube" {
		return 0, fmt.Errorf("%w: %s", ErrPlatformUnsupported, platform)
	}

	yt := s.client(ctx, userID)

	lookup := username
	if channelID.String != "" {
		lookup = channelID.String
	}
	ch, err := yt.Channel(ctx, lookup)
	if err != nil {
		return 0, err
	}

	vids, err := yt.ChannelVideos(ctx, ch.ID, 50)
	if err != nil {
		return 0, err
	}

	var totalViews int64
	for _, v := range vids {
		totalViews += v.ViewCount
	}
	var avgViews int64
	if len(vids) > 0 {
		avgViews = totalViews / int64(len(vids))
	}

	now := db.NowUTC()
	synced := 0
	err = db.WithTx(ctx, s.DB, func(conn *db.CompatConn) error {
		_, err := conn.ExecContext(ctx,
			`UPDATE tracked_accounts SET platform_account_id = ?, display_name = ?, avatar_url = ?,
				follower_count = ?, video_count = ?, avg_views = ?, last_synced_at = ?, updated_at = ?
			 WHERE id = ?`,
			ch.ID, ch.Title, ch.Avatar, ch.SubscriberCount, ch.VideoCount, avgViews, now, now, accountID)
		if err != nil {
			return err
		}

		for _, v := range vids {
			if err := s.upsertVideo(ctx, conn, accountID, "youtube", v, avgViews); err != nil {
				log.Printf("sync: upsert video %s: %v", v.ID, err)
				continue
			}
			synced++
		}

		_, err = conn.ExecContext(ctx,
			`INSERT INTO account_snapshots (id, account_id, follower_count, total_videos, avg_views, total_views, captured_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), accountID, ch.SubscriberCount, ch.VideoCount, avgViews, totalViews, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	if s.Store != nil {
		for _, v := range vids {
			if v.Thumbnail != "" {
				s.mirrorThumbnail(ctx, "youtube", v.ID, v.Thumbnail)
			}
		}
	}

	return synced, nil
}

// SyncVideo refreshes a single video that is not tied to a tracked account.
func (s *Syncer) SyncVideo(ctx context.Context, userID, videoID string) error {
	yt := s.client(ctx, userID)
	v, err := yt.Video(ctx, videoID)
	if err != nil {
		return err
	}
	if err := s.upsertVideo(ctx, s.DB, "", "youtube", *v, 0); err != nil {
		return err
	}
	if s.Store != nil && v.Thumbnail != "" {
		s.mirrorThumbnail(ctx, "youtube", v.ID, v.Thumbnail)
	}
	return nil
}

// execer covers CompatDB and an open transaction connection.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// upsertVideo writes or refreshes a video row keyed on (platform, platform
// video id). A zero avgViews leaves the stored nx score untouched so a
// one-off video sync cannot wipe a channel-relative score.
func (s *Syncer) upsertVideo(ctx context.Context, ex execer, accountID, platform string, v youtube.VideoInfo, avgViews int64) error {
	engagement := math.Round(analytics.EngagementRate(v.LikeCount, v.CommentCount, v.ViewCount)*10000) / 10000
	var nx float64
	if avgViews > 0 {
		nx = math.Round(float64(v.ViewCount)/float64(avgViews)*100) / 100
	}

	var acc interface{}
	if accountID != "" {
		acc = accountID
	}
	var published interface{}
	if !v.PublishedAt.IsZero() {
		published = db.FormatTime(v.PublishedAt)
	}

	now := db.NowUTC()
	_, err := ex.ExecContext(ctx,
		`INSERT INTO videos (id, account_id, platform, platform_video_id, title, description,
			thumbnail_url, video_url, duration_seconds, view_count, like_count, comment_count,
			engagement_rate, nx_avg, published_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (platform, platform_video_id) DO UPDATE SET
			account_id = COALESCE(excluded.account_id, videos.account_id),
			title = excluded.title,
			description = excluded.description,
			thumbnail_url = excluded.thumbnail_url,
			duration_seconds = excluded.duration_seconds,
			view_count = excluded.view_count,
			like_count = excluded.like_count,
			comment_count = excluded.comment_count,
			engagement_rate = excluded.engagement_rate,
			nx_avg = CASE WHEN excluded.nx_avg > 0 THEN excluded.nx_avg ELSE videos.nx_avg END,
			published_at = COALESCE(excluded.published_at, videos.published_at),
			updated_at = excluded.updated_at`,
		uuid.New().String(), acc, platform, v.ID, v.Title, v.Description,
		v.Thumbnail, "https://www.youtube.com/watch?v="+v.ID, v.DurationSeconds,
		v.ViewCount, v.LikeCount, v.CommentCount, engagement, nx, published, now, now)
	return err
}

// mirrorThumbnail keeps a local copy of the upstream thumbnail so the UI
// does not depend on platform CDN availability. Failures only log.
func (s *Syncer) mirrorThumbnail(ctx context.Context, platform, videoID, url string) {
	var key string
	err := s.DB.QueryRowContext(ctx,
		"SELECT COALESCE(thumbnail_key, '') FROM videos WHERE platform = ? AND platform_video_id = ?",
		platform, videoID).Scan(&key)
	if err != nil || key != "" {
		return
	}

	resp, err := resty.New().SetTimeout(10 * time.Second).R().SetContext(ctx).Get(url)
	if err != nil || resp.IsError() {
		return
	}
	body := resp.Body()

	key = fmt.Sprintf("thumbs/%s/%s.jpg", platform, videoID)
	_, err = s.Store.PutObject(ctx, s.Bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		log.Printf("sync: mirror thumbnail %s: %v", key, err)
		return
	}

	if _, err := s.DB.ExecContext(ctx,
		"UPDATE videos SET thumbnail_key = ? WHERE platform = ? AND platform_video_id = ?",
		key, platform, videoID); err != nil {
		log.Printf("sync: record thumbnail key %s: %v", key, err)
	}
}
