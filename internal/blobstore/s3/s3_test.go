package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/listings", baseURL("http://localhost:9000", "listings", ""))
	assert.Equal(t, "https://cdn.example.com", baseURL("http://localhost:9000", "listings", "https://cdn.example.com/"))
}

func TestKeyFromURL(t *testing.T) {
	base := "http://localhost:9000/listings"

	key, err := keyFromURL(base, base+"/properties/1700000000000_a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "properties/1700000000000_a.jpg", key)

	key, err = keyFromURL(base, base+"/properties/1_b.png?X-Amz-Signature=abc")
	require.NoError(t, err)
	assert.Equal(t, "properties/1_b.png", key)
}

func TestKeyFromURLRejectsForeignURL(t *testing.T) {
	_, err := keyFromURL("http://localhost:9000/listings", "http://other/listings/properties/1_a.jpg")
	assert.Error(t, err)

	_, err = keyFromURL("http://localhost:9000/listings", "http://localhost:9000/listings/")
	assert.Error(t, err)
}
