package models

import (
	"fmt"
	"strings"
)

// ScreenResolution is a page-visible screen metric pair.
type ScreenResolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r ScreenResolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// FingerprintProfile is the randomized identity bundle exposed to pages for
// one browsing session. All fields are fixed at generation time; a page
// must see the same values for the whole session.
type FingerprintProfile struct {
	UserAgent           string           `json:"user_agent"`
	ScreenResolution    ScreenResolution `json:"screen_resolution"`
	Timezone            string           `json:"timezone"`
	WebGLVendor         string           `json:"webgl_vendor"`
	WebGLRenderer       string           `json:"webgl_renderer"`
	Languages           []string         `json:"languages"`
	HardwareConcurrency int              `json:"hardware_concurrency"`
	Platform            string           `json:"platform"`
	ColorDepth          int              `json:"color_depth"`
	PixelRatio          float64          `json:"pixel_ratio"`
	Plugin              string           `json:"plugin"`
}

// Headers returns the header overrides the interceptor applies to allowed
// requests: the profile's user agent, its Accept-Language line, the
// platform client hint, and an unconditional DNT. Every field is derived
// from immutable profile state, so repeated calls return identical maps.
func (p *FingerprintProfile) Headers() map[string]string {
	return map[string]string{
		"User-Agent":         p.UserAgent,
		"Accept-Language":    p.AcceptLanguage(),
		"DNT":                "1",
		"Sec-CH-UA-Platform": fmt.Sprintf("%q", p.Platform),
	}
}

// AcceptLanguage renders the ordered language list as an Accept-Language
// value with descending q-weights, e.g. "en-US,en;q=0.9".
func (p *FingerprintProfile) AcceptLanguage() string {
	var b strings.Builder
	for i, lang := range p.Languages {
		if i == 0 {
			b.WriteString(lang)
			continue
		}
		q := 1.0 - 0.1*float64(i)
		if q < 0.1 {
			q = 0.1
		}
		fmt.Fprintf(&b, ",%s;q=%.1f", lang, q)
	}
	return b.String()
}

// ProfilePools enumerates the candidate values each profile field is drawn
// from. Every pool must be non-empty.
type ProfilePools struct {
	UserAgents          []string           `json:"user_agents"`
	ScreenResolutions   []ScreenResolution `json:"screen_resolutions"`
	Timezones           []string           `json:"timezones"`
	WebGLVendors        []string           `json:"webgl_vendors"`
	WebGLRenderers      []string           `json:"webgl_renderers"`
	Languages           [][]string         `json:"languages"`
	HardwareConcurrency []int              `json:"hardware_concurrency"`
	Platforms           []string           `json:"platforms"`
	ColorDepths         []int              `json:"color_depths"`
	PixelRatios         []float64          `json:"pixel_ratios"`
	Plugins             []string           `json:"plugins"`
}
