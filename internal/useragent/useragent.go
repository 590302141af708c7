// Package useragent rotates realistic browser fingerprints between requests
// so consecutive fetches to the same domain are not trivially linkable to a
// single static client.
package useragent

import (
	"math/rand"
)

// Profile is a single realistic browser fingerprint.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	Accept         string
	Platform       string
}

// Profiles is the fixed pool of six browser profiles covering
// Chrome/Firefox/Safari/Edge on Windows/macOS/Linux, transcribed from the
// reference implementation's user agent table.
var Profiles = []Profile{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		Platform:       "Windows",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		Platform:       "macOS",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		Platform:       "Linux",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
		AcceptLanguage: "en-US,en;q=0.5",
		AcceptEncoding: "gzip, deflate, br",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		Platform:       "Windows",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2.1 Safari/605.1.15",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		Platform:       "macOS",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		Platform:       "Windows",
	},
}

// Rotator hands out browser profiles either randomly or round-robin.
type Rotator struct {
	profiles []Profile
	index    int
}

// NewRotator creates a Rotator over the default profile pool.
func NewRotator() *Rotator {
	return &Rotator{profiles: Profiles}
}

// Random returns a uniformly random profile.
func (r *Rotator) Random() Profile {
	return r.profiles[rand.Intn(len(r.profiles))]
}

// Next returns profiles in round-robin order.
func (r *Rotator) Next() Profile {
	p := r.profiles[r.index%len(r.profiles)]
	r.index++
	return p
}

// Headers builds the realistic browser header set (§6) for a profile. A nil
// profile picks one at random.
func (r *Rotator) Headers(p *Profile) map[string]string {
	profile := p
	if profile == nil {
		picked := r.Random()
		profile = &picked
	}
	return map[string]string{
		"User-Agent":                profile.UserAgent,
		"Accept":                    profile.Accept,
		"Accept-Language":           profile.AcceptLanguage,
		"Accept-Encoding":           profile.AcceptEncoding,
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}
