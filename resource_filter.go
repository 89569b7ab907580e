package reagentcrawler

import (
	"net/url"
	"strings"
)

// ResourceRequest is the part of a sub-resource request the filter looks at.
type ResourceRequest struct {
	Type         string
	URL          string
	IsNavigation bool
}

type Verdict int

const (
	Allow Verdict = iota
	Block
)

func (v Verdict) String() string {
	if v == Block {
		return "block"
	}
	return "allow"
}

// ResourceFilter decides which sub-resources reach a render session.
// It holds no mutable state and is shared between sessions.
type ResourceFilter struct {
	types      map[string]struct{}
	substrings []string
	extensions []string
}

func NewResourceFilter(types, substrings, extensions []string) *ResourceFilter {
	f := &ResourceFilter{types: make(map[string]struct{}, len(types))}
	for _, t := range types {
		f.types[strings.ToLower(t)] = struct{}{}
	}
	for _, s := range substrings {
		if s != "" {
			f.substrings = append(f.substrings, s)
		}
	}
	for _, e := range extensions {
		if e != "" {
			f.extensions = append(f.extensions, strings.ToLower(e))
		}
	}
	return f
}

func newEngineFilter(eng Engine) *ResourceFilter {
	if !eng.BlockResources {
		return nil
	}
	return NewResourceFilter(eng.BlockedResourceTypes, eng.BlockedURLs, eng.BlockedExtensions)
}

// Decide never blocks the top-level navigation of the page.
func (f *ResourceFilter) Decide(req ResourceRequest) Verdict {
	if f == nil || req.IsNavigation {
		return Allow
	}
	if _, ok := f.types[strings.ToLower(req.Type)]; ok {
		return Block
	}
	for _, s := range f.substrings {
		if strings.Contains(req.URL, s) {
			return Block
		}
	}
	if len(f.extensions) > 0 {
		path := strings.ToLower(req.URL)
		if u, err := url.Parse(req.URL); err == nil {
			path = strings.ToLower(u.Path)
		}
		for _, ext := range f.extensions {
			if strings.HasSuffix(path, ext) {
				return Block
			}
		}
	}
	return Allow
}
