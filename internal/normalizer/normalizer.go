// Package normalizer canonicalizes URLs and classifies them as internal or
// external relative to a base, per spec §4.a.
package normalizer

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// trackingParams is the fixed set of tracking-parameter names dropped during
// normalization, enumerated in the GLOSSARY.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm_id": true,
	"fbclid": true, "gclid": true, "gclsrc": true, "dclid": true,
	"msclkid": true, "twclid": true, "ref": true, "ref_src": true,
	"source": true, "mc_cid": true, "mc_eid": true, "si": true,
	"spm": true, "_ga": true, "_gl": true, "_hsenc": true, "_hsmi": true,
	"hsa_cam": true, "hsa_grp": true, "hsa_mt": true, "hsa_src": true,
	"hsa_ad": true, "hsa_acc": true, "hsa_net": true, "hsa_ver": true,
	"hsa_kw": true, "hsa_tgt": true, "hsa_la": true, "hsa_ol": true,
}

var allowedSchemes = map[string]bool{"http": true, "https": true}

var skippedSchemePrefixes = []string{
	"javascript:", "mailto:", "tel:", "data:", "ftp:", "file:", "blob:",
}

// safePathChars mirrors Python's quote(path, safe="/:@!$&'()*+,;=-._~").
const safePathChars = "/:@!$&'()*+,;=-._~"

// Normalizer canonicalizes URLs for consistent crawling.
type Normalizer struct {
	RemoveTrackingParams bool
	RemoveFragments      bool
	SortQueryParams      bool
}

// New creates a Normalizer with the spec's defaults (remove tracking params,
// remove fragments, sort query params).
func New() *Normalizer {
	return &Normalizer{
		RemoveTrackingParams: true,
		RemoveFragments:      true,
		SortQueryParams:      true,
	}
}

// Normalize fully canonicalizes url, resolving it against base if it is
// relative. Returns "", false if the URL is invalid or not crawlable.
func (n *Normalizer) Normalize(raw string, base string) (string, bool) {
	if base != "" && !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		rel, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		raw = baseURL.ResolveReference(rel).String()
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	lower := strings.ToLower(decoded)
	for _, p := range skippedSchemePrefixes {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}

	parsed, err := url.Parse(decoded)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !allowedSchemes[scheme] {
		return "", false
	}

	hostname := strings.ToLower(strings.Trim(parsed.Hostname(), "."))
	if hostname == "" {
		return "", false
	}

	netloc := hostname
	if port := parsed.Port(); port != "" {
		if !((scheme == "http" && port == "80") || (scheme == "https" && port == "443")) {
			netloc = hostname + ":" + port
		}
	}
	if parsed.User != nil {
		userinfo := parsed.User.Username()
		if pw, ok := parsed.User.Password(); ok {
			userinfo += ":" + pw
		}
		netloc = userinfo + "@" + netloc
	}

	path := normalizePath(parsed.Path)
	query := n.normalizeQuery(parsed.RawQuery)

	fragment := parsed.Fragment
	if n.RemoveFragments {
		fragment = ""
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(netloc)
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	if fragment != "" {
		b.WriteString("#")
		b.WriteString(fragment)
	}
	return b.String(), true
}

// normalizePath collapses repeated slashes, resolves . and .., and strips a
// trailing slash except on root.
func normalizePath(path string) string {
	path = collapseSlashes(path)

	segments := strings.Split(path, "/")
	resolved := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case ".":
			continue
		case "..":
			if len(resolved) > 0 && resolved[len(resolved)-1] != "" {
				resolved = resolved[:len(resolved)-1]
			}
		default:
			resolved = append(resolved, seg)
		}
	}

	path = strings.Join(resolved, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	return encodePath(path)
}

func collapseSlashes(path string) string {
	var b strings.Builder
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

func encodePath(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if isUnreserved(c) || strings.IndexByte(safePathChars, c) >= 0 {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// normalizeQuery parses the query into a multimap, drops tracking
// parameters, and optionally re-emits keys and values sorted.
func (n *Normalizer) normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}

	if n.RemoveTrackingParams {
		for k := range values {
			if trackingParams[strings.ToLower(k)] {
				delete(values, k)
			}
		}
	}

	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	if n.SortQueryParams {
		sort.Strings(keys)
	}

	var parts []string
	for _, k := range keys {
		vs := values[k]
		if n.SortQueryParams {
			sort.Strings(vs)
		}
		for _, v := range vs {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

// Domain extracts the registered domain (domain.suffix) from a URL.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		host = raw
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// Subdomain extracts the full subdomain.domain.suffix triple from a URL.
func Subdomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// IsSameDomain reports whether two URLs share the same registered domain.
func IsSameDomain(a, b string) bool {
	return Domain(a) == Domain(b)
}

// IsSameSubdomain reports whether two URLs share the same full subdomain.
func IsSameSubdomain(a, b string) bool {
	return Subdomain(a) == Subdomain(b)
}

// IsInternalLink determines whether raw is internal relative to base,
// comparing the registered domain (if includeSubdomains) or the full
// subdomain otherwise.
func IsInternalLink(raw, base string, includeSubdomains bool) bool {
	if includeSubdomains {
		return IsSameDomain(raw, base)
	}
	return IsSameSubdomain(raw, base)
}
