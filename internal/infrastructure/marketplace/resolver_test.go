package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	resolver := NewStaticResolver(map[string]string{"S-1": "trendyol"})

	provider, err := resolver.ProviderFor(context.Background(), "S-1")
	require.NoError(t, err)
	assert.Equal(t, "trendyol", provider)

	_, err = resolver.ProviderFor(context.Background(), "S-2")
	require.Error(t, err)
}
