// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

// CSP source keywords.
const (
	CSPSelf = "'self'"
	CSPNone = "'none'"
)

// defaultCSP allows the pages only what they load from the server itself.
var defaultCSP = CSP{
	DefaultSrc:           []string{CSPSelf},
	FrameAncestors:       []string{CSPNone},
	FormAction:           []string{CSPSelf},
	BaseURI:              []string{CSPSelf},
	ObjectSrc:            []string{CSPNone},
	BlockAllMixedContent: true,
}

// CSP is a Content-Security-Policy. The zero value is an empty policy.
//
// See https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Content-Security-Policy.
type CSP struct {
	DefaultSrc     []string
	ScriptSrc      []string
	StyleSrc       []string
	ImgSrc         []string
	ConnectSrc     []string
	FormAction     []string
	FrameAncestors []string
	BaseURI        []string
	ObjectSrc      []string

	BlockAllMixedContent    bool
	UpgradeInsecureRequests bool
}

// String returns the policy as the value of a header, with its directives
// sorted.
func (p CSP) String() string {
	var directives []string
	for _, d := range []struct {
		name    string
		sources []string
	}{
		{"default-src", p.DefaultSrc},
		{"script-src", p.ScriptSrc},
		{"style-src", p.StyleSrc},
		{"img-src", p.ImgSrc},
		{"connect-src", p.ConnectSrc},
		{"form-action", p.FormAction},
		{"frame-ancestors", p.FrameAncestors},
		{"base-uri", p.BaseURI},
		{"object-src", p.ObjectSrc},
	} {
		if len(d.sources) > 0 {
			directives = append(directives, d.name+" "+strings.Join(d.sources, " "))
		}
	}
	if p.BlockAllMixedContent {
		directives = append(directives, "block-all-mixed-content")
	}
	if p.UpgradeInsecureRequests {
		directives = append(directives, "upgrade-insecure-requests")
	}
	slices.Sort(directives)
	return strings.Join(directives, "; ")
}

// CSPMux picks the policy of a request by the patterns of [http.ServeMux].
type CSPMux struct {
	mu       sync.RWMutex
	mux      *http.ServeMux
	policies map[string]string // pattern to header value
}

// NewCSPMux returns an empty [CSPMux].
func NewCSPMux() *CSPMux {
	return &CSPMux{
		mux:      http.NewServeMux(),
		policies: make(map[string]string),
	}
}

// Handle sets the policy of requests matching pattern. It panics if pattern
// already has one.
func (mux *CSPMux) Handle(pattern string, policy CSP) {
	mux.mu.Lock()
	defer mux.mu.Unlock()

	if _, ok := mux.policies[pattern]; ok {
		panic("web: multiple registrations for " + pattern)
	}
	mux.mux.Handle(pattern, http.NotFoundHandler())
	mux.policies[pattern] = policy.String()
}

// PolicyFor returns the header value of the policy of the pattern that
// matches r best, if any matches.
func (mux *CSPMux) PolicyFor(r *http.Request) (string, bool) {
	mux.mu.RLock()
	defer mux.mu.RUnlock()

	_, pattern := mux.mux.Handler(r)
	policy, ok := mux.policies[pattern]
	return policy, ok
}
