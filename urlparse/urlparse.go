// Package urlparse classifies social-media URLs into platform, content
// kind and native ID. It is a pure function over the URL string: no
// network calls, no guessing on unrecognized hosts.
package urlparse

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform identifiers as stored with accounts and videos.
const (
	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
)

// Kind of content a URL points at.
const (
	KindVideo   = "video"
	KindProfile = "profile"
)

// Parsed is the classification of a social-media URL.
type Parsed struct {
	Platform string
	Kind     string
	ID       string // video ID or username
	Username string
	URL      string
}

var (
	ytShortsRe    = regexp.MustCompile(`/shorts/([^/?]+)`)
	ytHandleRe    = regexp.MustCompile(`/@([^/?]+)`)
	ytChannelRe   = regexp.MustCompile(`/channel/([^/?]+)`)
	ttVideoRe     = regexp.MustCompile(`/@([^/]+)/video/(\d+)`)
	ttProfileRe   = regexp.MustCompile(`/@([^/?]+)`)
	igPostRe      = regexp.MustCompile(`/(p|reel|reels)/([^/?]+)`)
	twStatusRe    = regexp.MustCompile(`/([^/]+)/status/(\d+)`)
	liPostRe      = regexp.MustCompile(`/feed/update/([^/?]+)`)
	liProfileRe   = regexp.MustCompile(`/in/([^/?]+)`)
	liCompanyRe   = regexp.MustCompile(`/company/([^/?]+)`)
)

// Reserved route segments that must not be mistaken for usernames.
var igReserved = map[string]bool{"explore": true, "accounts": true, "about": true}
var twReserved = map[string]bool{
	"home": true, "explore": true, "notifications": true,
	"messages": true, "settings": true, "i": true,
}

// Parse classifies raw. It returns nil for unrecognized hosts, ambiguous
// paths and anything that does not parse as a URL.
func Parse(raw string) *Parsed {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(u.Hostname(), "www."), "m.")

	// Detection order matters: first matching hostname wins.
	switch {
	case strings.Contains(host, "youtube.com") || host == "youtu.be":
		return parseYouTube(u, host, raw)
	case strings.Contains(host, "tiktok.com"):
		return parseTikTok(u, raw)
	case strings.Contains(host, "instagram.com"):
		return parseInstagram(u, raw)
	case strings.Contains(host, "twitter.com") || strings.Contains(host, "x.com"):
		return parseTwitter(u, raw)
	case strings.Contains(host, "linkedin.com"):
		return parseLinkedIn(u, raw)
	}
	return nil
}

func parseYouTube(u *url.URL, host, raw string) *Parsed {
	if v := u.Query().Get("v"); v != "" {
		return &Parsed{Platform: PlatformYouTube, Kind: KindVideo, ID: v, URL: raw}
	}
	if host == "youtu.be" {
		if id := strings.TrimPrefix(u.Path, "/"); id != "" {
			return &Parsed{Platform: PlatformYouTube, Kind: KindVideo, ID: id, URL: raw}
		}
		return nil
	}
	if m := ytShortsRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformYouTube, Kind: KindVideo, ID: m[1], URL: raw}
	}
	if m := ytHandleRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformYouTube, Kind: KindProfile, ID: m[1], Username: m[1], URL: raw}
	}
	if m := ytChannelRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformYouTube, Kind: KindProfile, ID: m[1], URL: raw}
	}
	return nil
}

func parseTikTok(u *url.URL, raw string) *Parsed {
	if m := ttVideoRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformTikTok, Kind: KindVideo, ID: m[2], Username: m[1], URL: raw}
	}
	if m := ttProfileRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformTikTok, Kind: KindProfile, ID: m[1], Username: m[1], URL: raw}
	}
	return nil
}

func parseInstagram(u *url.URL, raw string) *Parsed {
	if m := igPostRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformInstagram, Kind: KindVideo, ID: m[2], URL: raw}
	}
	username := strings.ReplaceAll(u.Path, "/", "")
	if username != "" && !igReserved[username] {
		return &Parsed{Platform: PlatformInstagram, Kind: KindProfile, ID: username, Username: username, URL: raw}
	}
	return nil
}

func parseTwitter(u *url.URL, raw string) *Parsed {
	if m := twStatusRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformTwitter, Kind: KindVideo, ID: m[2], Username: m[1], URL: raw}
	}
	username := strings.TrimPrefix(u.Path, "/")
	if idx := strings.IndexByte(username, '/'); idx != -1 {
		username = username[:idx]
	}
	if username != "" && !twReserved[username] {
		return &Parsed{Platform: PlatformTwitter, Kind: KindProfile, ID: username, Username: username, URL: raw}
	}
	return nil
}

func parseLinkedIn(u *url.URL, raw string) *Parsed {
	if m := liPostRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformLinkedIn, Kind: KindVideo, ID: m[1], URL: raw}
	}
	if m := liProfileRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformLinkedIn, Kind: KindProfile, ID: m[1], Username: m[1], URL: raw}
	}
	if m := liCompanyRe.FindStringSubmatch(u.Path); m != nil {
		return &Parsed{Platform: PlatformLinkedIn, Kind: KindProfile, ID: m[1], Username: m[1], URL: raw}
	}
	return nil
}
