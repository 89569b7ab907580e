package reagentcrawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceFilterDecide(t *testing.T) {
	f := NewResourceFilter(
		[]string{"image", "Font"},
		[]string{"googletagmanager.com", "bam.nr-data.net"},
		[]string{".svg", ".woff"},
	)

	cases := []struct {
		name string
		req  ResourceRequest
		want Verdict
	}{
		{"blocked type", ResourceRequest{Type: "image", URL: "https://cdn.vendor.test/a.jpg"}, Block},
		{"type match ignores case", ResourceRequest{Type: "font", URL: "https://cdn.vendor.test/a"}, Block},
		{"blocked domain", ResourceRequest{Type: "script", URL: "https://www.googletagmanager.com/gtm.js"}, Block},
		{"blocked extension", ResourceRequest{Type: "other", URL: "https://cdn.vendor.test/logo.SVG?v=2"}, Block},
		{"extension only in query", ResourceRequest{Type: "xhr", URL: "https://api.vendor.test/x?file=a.svg"}, Allow},
		{"plain script", ResourceRequest{Type: "script", URL: "https://www.vendor.test/app.js"}, Allow},
		{"navigation is never blocked", ResourceRequest{Type: "document", URL: "https://bam.nr-data.net/x.svg", IsNavigation: true}, Allow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.Decide(tc.req))
		})
	}
}

func TestResourceFilterEmptyAllowsEverything(t *testing.T) {
	f := NewResourceFilter(nil, []string{""}, []string{""})
	assert.Equal(t, Allow, f.Decide(ResourceRequest{Type: "image", URL: "https://x.test/a.png"}))

	var nilFilter *ResourceFilter
	assert.Equal(t, Allow, nilFilter.Decide(ResourceRequest{Type: "image"}))
}

func TestNewEngineFilter(t *testing.T) {
	assert.Nil(t, newEngineFilter(Engine{BlockedResourceTypes: []string{"image"}}))

	f := newEngineFilter(Engine{BlockResources: true, BlockedResourceTypes: []string{"image"}})
	if assert.NotNil(t, f) {
		assert.Equal(t, Block, f.Decide(ResourceRequest{Type: "image"}))
		assert.Equal(t, "block", Block.String())
	}
}
