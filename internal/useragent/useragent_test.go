package useragent

import "testing"

func TestRotatorNextCyclesAllProfiles(t *testing.T) {
	r := NewRotator()
	seen := make(map[string]bool)
	for i := 0; i < len(Profiles); i++ {
		seen[r.Next().UserAgent] = true
	}
	if len(seen) != len(Profiles) {
		t.Errorf("Next failed: expected %d distinct profiles got %d", len(Profiles), len(seen))
	}
}

func TestHeadersIncludesRequiredFields(t *testing.T) {
	r := NewRotator()
	p := Profiles[0]
	h := r.Headers(&p)
	for _, key := range []string{
		"User-Agent", "Accept", "Accept-Language", "Accept-Encoding",
		"DNT", "Connection", "Upgrade-Insecure-Requests",
		"Sec-Fetch-Dest", "Sec-Fetch-Mode", "Sec-Fetch-Site", "Sec-Fetch-User",
		"Cache-Control",
	} {
		if h[key] == "" {
			t.Errorf("Headers failed: missing %s", key)
		}
	}
}
