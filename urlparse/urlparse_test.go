package urlparse

import "testing"

func TestParse_Matches(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform string
		kind     string
		id       string
		username string
	}{
		{"youtube watch", "https://youtube.com/watch?v=abc123", PlatformYouTube, KindVideo, "abc123", ""},
		{"youtube watch www", "https://www.youtube.com/watch?v=abc123", PlatformYouTube, KindVideo, "abc123", ""},
		{"youtu.be", "https://youtu.be/xyz789", PlatformYouTube, KindVideo, "xyz789", ""},
		{"youtube shorts", "https://youtube.com/shorts/short1", PlatformYouTube, KindVideo, "short1", ""},
		{"youtube handle", "https://youtube.com/@mrbeast", PlatformYouTube, KindProfile, "mrbeast", "mrbeast"},
		{"youtube channel id", "https://youtube.com/channel/UCxyz", PlatformYouTube, KindProfile, "UCxyz", ""},
		{"tiktok video", "https://tiktok.com/@creator/video/12345", PlatformTikTok, KindVideo, "12345", "creator"},
		{"tiktok profile", "https://tiktok.com/@creator", PlatformTikTok, KindProfile, "creator", "creator"},
		{"tiktok mobile", "https://m.tiktok.com/@creator", PlatformTikTok, KindProfile, "creator", "creator"},
		{"instagram reel", "https://instagram.com/reel/Cabc", PlatformInstagram, KindVideo, "Cabc", ""},
		{"instagram post", "https://instagram.com/p/Cdef", PlatformInstagram, KindVideo, "Cdef", ""},
		{"instagram profile", "https://instagram.com/creator", PlatformInstagram, KindProfile, "creator", "creator"},
		{"tweet", "https://twitter.com/elonmusk/status/99887766", PlatformTwitter, KindVideo, "99887766", "elonmusk"},
		{"x.com tweet", "https://x.com/someone/status/123", PlatformTwitter, KindVideo, "123", "someone"},
		{"twitter profile", "https://x.com/someone", PlatformTwitter, KindProfile, "someone", "someone"},
		{"linkedin post", "https://linkedin.com/feed/update/urn:li:activity:777", PlatformLinkedIn, KindVideo, "urn:li:activity:777", ""},
		{"linkedin profile", "https://linkedin.com/in/jane-doe", PlatformLinkedIn, KindProfile, "jane-doe", "jane-doe"},
		{"linkedin company", "https://linkedin.com/company/acme", PlatformLinkedIn, KindProfile, "acme", "acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.url)
			if got == nil {
				t.Fatalf("Parse(%q) = nil, want match", tt.url)
			}
			if got.Platform != tt.platform || got.Kind != tt.kind || got.ID != tt.id {
				t.Errorf("Parse(%q) = {%s %s %s}, want {%s %s %s}",
					tt.url, got.Platform, got.Kind, got.ID, tt.platform, tt.kind, tt.id)
			}
			if got.Username != tt.username {
				t.Errorf("Parse(%q).Username = %q, want %q", tt.url, got.Username, tt.username)
			}
		})
	}
}

func TestParse_NoMatch(t *testing.T) {
	urls := []string{
		"https://example.com/watch?v=abc",
		"https://instagram.com/explore",
		"https://instagram.com/accounts",
		"https://twitter.com/home",
		"https://x.com/settings",
		"https://twitter.com/i",
		"https://youtube.com/",
		"not a url",
		"",
	}
	for _, u := range urls {
		if got := Parse(u); got != nil {
			t.Errorf("Parse(%q) = %+v, want nil", u, got)
		}
	}
}

// Same input must always yield the same output.
func TestParse_Deterministic(t *testing.T) {
	const u = "https://tiktok.com/@creator"
	a, b := Parse(u), Parse(u)
	if a == nil || b == nil || *a != *b {
		t.Errorf("Parse not deterministic: %+v vs %+v", a, b)
	}
}
