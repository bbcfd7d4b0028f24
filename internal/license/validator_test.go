package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWhitelistedLicenses(t *testing.T) {
	for _, id := range []string{
		"CC0",
		"Public Domain",
		"CC BY",
		"CC BY-SA",
		"CC BY 4.0",
		"CC BY-SA 4.0",
		"Pexels License",
		"  cc0  ",
		"pexels license",
	} {
		t.Run(id, func(t *testing.T) {
			d := Validate(id)
			assert.True(t, d.Accepted, "expected %q to be accepted", id)
			assert.Empty(t, d.Reason)
		})
	}
}

func TestValidateHardExclusionShortCircuitsWhitelist(t *testing.T) {
	// These contain an accepted token but must still be rejected because
	// the hard-exclusion rule runs first.
	tests := []string{
		"CC BY-NC",
		"CC BY-NC 4.0",
		"CC BY-ND",
		"cc by-nc-sa 4.0",
		"Editorial",
		"Getty Editorial Use Only",
		"CC BY 4.0 (Editorial)",
	}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			d := Validate(id)
			assert.False(t, d.Accepted)
			assert.Equal(t, ReasonHardExcluded, d.Reason)
		})
	}
}

func TestValidateRejectsUnknownLicenses(t *testing.T) {
	for _, id := range []string{"", "All Rights Reserved", "GPL-3.0", "CC BY-SA 3.0 DE"} {
		t.Run(id, func(t *testing.T) {
			d := Validate(id)
			assert.False(t, d.Accepted)
			assert.Equal(t, ReasonNotWhitelisted, d.Reason)
		})
	}
}
