// Package social finds a channel's social network links in free text.
package social

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"yt-creators/internal/models"
)

// Platform is a social network recognized by the extractor.
type Platform string

const (
	Twitter   Platform = "twitter"
	Twitch    Platform = "twitch"
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	Facebook  Platform = "facebook"
)

// Platforms lists the recognized platforms in classification order.
var Platforms = []Platform{Twitter, Twitch, Instagram, TikTok, Facebook}

var domains = map[Platform]string{
	Twitter:   "twitter.com",
	Twitch:    "twitch.tv",
	Instagram: "instagram.com",
	TikTok:    "tiktok.com",
	Facebook:  "facebook.com",
}

// Domain is the substring a URL must contain to belong to p.
func (p Platform) Domain() string {
	return domains[p]
}

var (
	// $-_ is the range 0x24-0x5F: digits, upper case letters and URL
	// punctuation such as / : ? = and %.
	strictURLPattern = regexp.MustCompile(`https?://(?:[a-zA-Z0-9$-_@.&+!*(),]|%[0-9a-fA-F]{2})+`)
	looseURLPattern  = regexp.MustCompile(`(?:https?://)?(?:[a-zA-Z0-9$-_@.&+!*(),]|%[0-9a-fA-F]{2})+`)
)

// ExtractedURL is a URL-shaped token found in text together with the
// platforms whose domain it contains.
type ExtractedURL struct {
	URL       string
	Platforms []Platform
}

// Links maps a platform to the first URL found for it. A missing key means
// no link.
type Links map[Platform]string

// Get returns the link for p, or nil.
func (l Links) Get(p Platform) *string {
	v, ok := l[p]
	if !ok {
		return nil
	}
	return &v
}

// SocialLinks converts l into the persisted link set. Discord, Patreon and
// Other are never populated by extraction.
func (l Links) SocialLinks() models.SocialLinks {
	return models.SocialLinks{
		Twitter:   l.Get(Twitter),
		Twitch:    l.Get(Twitch),
		Instagram: l.Get(Instagram),
		TikTok:    l.Get(TikTok),
		Facebook:  l.Get(Facebook),
	}
}

// FindURLs returns the http(s) URLs in text that mention a known platform
// domain, in scan order. The domain may appear anywhere in the URL.
func FindURLs(text string) []ExtractedURL {
	return findURLs(strictURLPattern, text)
}

// FindLooseURLs is FindURLs for text where links may omit the scheme, as in
// "twitch.tv/someone". Labels glued to a link ("IG:instagram.com/x") and
// wrapping punctuation are cut away, scheme-less links get https:// added,
// and a link is only kept when its host is on a platform's domain.
func FindLooseURLs(text string) []ExtractedURL {
	var found []ExtractedURL
	for _, token := range looseURLPattern.FindAllString(text, -1) {
		candidate := looseCandidate(token)
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		if matched := hostPlatforms(u.Hostname()); len(matched) > 0 {
			found = append(found, ExtractedURL{URL: candidate, Platforms: matched})
		}
	}
	return found
}

// looseCandidate turns a raw token into an absolute URL string.
func looseCandidate(token string) string {
	if i := schemeIndex(token); i >= 0 {
		return trimTrailing(token[i:])
	}
	head, _, _ := strings.Cut(token, "/")
	if i := strings.LastIndexByte(head, ':'); i >= 0 {
		token = token[i+1:]
	}
	token = strings.TrimLeftFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return "https://" + trimTrailing(token)
}

// schemeIndex is the offset of the first http:// or https:// in s, or -1.
func schemeIndex(s string) int {
	lower := strings.ToLower(s)
	i := strings.Index(lower, "http://")
	if j := strings.Index(lower, "https://"); j >= 0 && (i < 0 || j < i) {
		i = j
	}
	return i
}

// trimTrailing drops sentence punctuation and unbalanced closing parens.
func trimTrailing(s string) string {
	for s != "" {
		switch last := s[len(s)-1]; {
		case last == ')' && strings.Count(s, ")") > strings.Count(s, "("):
		case strings.IndexByte(".,!*", last) >= 0:
		default:
			return s
		}
		s = s[:len(s)-1]
	}
	return s
}

func hostPlatforms(host string) []Platform {
	host = strings.ToLower(host)
	var matched []Platform
	for _, p := range Platforms {
		if host == p.Domain() || strings.HasSuffix(host, "."+p.Domain()) {
			matched = append(matched, p)
		}
	}
	return matched
}

func findURLs(pattern *regexp.Regexp, text string) []ExtractedURL {
	var found []ExtractedURL
	for _, token := range pattern.FindAllString(text, -1) {
		lower := strings.ToLower(token)
		var matched []Platform
		for _, p := range Platforms {
			if strings.Contains(lower, p.Domain()) {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			found = append(found, ExtractedURL{URL: token, Platforms: matched})
		}
	}
	return found
}

// Classify keeps, per platform, the first URL in scan order that mentions it.
func Classify(urls []ExtractedURL) Links {
	links := Links{}
	for _, u := range urls {
		for _, p := range u.Platforms {
			if _, taken := links[p]; !taken {
				links[p] = u.URL
			}
		}
	}
	return links
}

// Extract scans text for scheme-qualified links.
func Extract(text string) Links {
	return Classify(FindURLs(text))
}

// ExtractLoose scans text for links with or without a scheme.
func ExtractLoose(text string) Links {
	return Classify(FindLooseURLs(text))
}
