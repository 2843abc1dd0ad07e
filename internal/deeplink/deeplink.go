// Package deeplink turns a note timestamp into a link that opens the source
// video at that offset.
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadTimestamp is returned for anything that is not MM:SS or HH:MM:SS.
var ErrBadTimestamp = errors.New("deeplink: malformed timestamp")

// ParseTimestamp converts "MM:SS" or "HH:MM:SS" into seconds. Seconds must be
// below 60, and so must minutes in the three-field form; the leading field is
// unbounded.
func ParseTimestamp(ts string) (int, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
		vals[i] = n
	}
	for _, v := range vals[1:] {
		if v >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
	}
	if len(vals) == 2 {
		return vals[0]*60 + vals[1], nil
	}
	return vals[0]*3600 + vals[1]*60 + vals[2], nil
}

var videoHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

var pathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/"}

// VideoID extracts the 11-character video id from a watch, short, embed,
// shorts or live URL.
func VideoID(source string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = firstSegment(strings.TrimPrefix(u.Path, "/"))
	case videoHosts[host]:
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, p := range pathPrefixes {
			if strings.HasPrefix(u.Path, p) {
				id = firstSegment(strings.TrimPrefix(u.Path, p))
				break
			}
		}
	}
	if !validID(id) {
		return "", false
	}
	return id, true
}

// Link returns a watch URL for source starting at ts. If either cannot be
// understood, source is returned unchanged.
func Link(source, ts string) string {
	secs, err := ParseTimestamp(ts)
	if err != nil {
		return source
	}
	return LinkAt(source, secs)
}

// LinkAt is Link with the offset already in seconds.
func LinkAt(source string, seconds int) string {
	id, ok := VideoID(source)
	if !ok || seconds < 0 {
		return source
	}
	q := url.Values{}
	q.Set("v", id)
	return "https://www.youtube.com/watch?" + q.Encode() + "&t=" + strconv.Itoa(seconds) + "s"
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

func validID(id string) bool {
	if len(id) != 11 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
