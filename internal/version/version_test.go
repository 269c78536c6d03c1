package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime })

	assert.Equal(t, "dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-10-01T00:00:00Z"
	assert.Equal(t, "1.2.0 (abc123, built 2026-10-01T00:00:00Z)", String())
}
