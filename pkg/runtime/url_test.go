package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHTTPURL(t *testing.T) {
	assert.NoError(t, ValidateHTTPURL("https://api.galadriel.com/v1"))
	assert.NoError(t, ValidateHTTPURL(" http://localhost:8080/feed.xml "))

	for _, raw := range []string{"", "ftp://example.com", "https://", "example.com/feed", "::"} {
		assert.Error(t, ValidateHTTPURL(raw), raw)
	}
}
