package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeSpam(t *testing.T) {
	assert.False(t, LooksLikeSpam("Great mod, works perfectly on 3.8."))
	assert.False(t, LooksLikeSpam("Mirror: https://example.com/download"))

	// Four links pass; a fifth crosses the flood threshold.
	four := strings.Repeat("see https://example.com ", 4)
	assert.False(t, LooksLikeSpam(four))
	assert.True(t, LooksLikeSpam(four+" and https://example.com"))

	assert.True(t, LooksLikeSpam("FREE NITRO for everyone"))
	assert.True(t, LooksLikeSpam("don't miss this crypto giveaway"))
	assert.True(t, LooksLikeSpam("Limited Time Offer, act now"))
}
