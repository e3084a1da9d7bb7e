package contextbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCapabilitiesSection_EmptyOrNoneOmitsSection(t *testing.T) {
	assert.Equal(t, "", BuildCapabilitiesSection(nil))
	assert.Equal(t, "", BuildCapabilitiesSection([]string{"none"}))
}

func TestBuildCapabilitiesSection_IncludesOnlyActiveCategories(t *testing.T) {
	section := BuildCapabilitiesSection([]string{"shell"})
	assert.Contains(t, section, "Run shell commands")
	assert.NotContains(t, section, "GitHub")
	assert.Contains(t, section, "/cancel")
}

func TestBuildCapabilitiesSection_UnknownCategoryIgnored(t *testing.T) {
	section := BuildCapabilitiesSection([]string{"bogus"})
	assert.Equal(t, "", section)
}
