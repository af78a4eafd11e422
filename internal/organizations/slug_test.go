package organizations

import (
	"testing"

	"github.com/gosimple/slug"
	"github.com/stretchr/testify/assert"
)

func TestSlugDerivation(t *testing.T) {
	cases := map[string]string{
		"Acme Events":        "acme-events",
		"  Café  Nights  ":   "cafe-nights",
		"Q3 / Launch (2026)": "q3-launch-2026",
		"already-a-slug":     "already-a-slug",
	}
	for name, want := range cases {
		assert.Equal(t, want, slug.Make(name), "name %q", name)
	}
}
