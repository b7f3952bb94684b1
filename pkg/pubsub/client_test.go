package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"proj", "orders", "projects/proj/topics/orders"},
		{"proj", "  orders  ", "projects/proj/topics/orders"},
		{"proj", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"proj", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, topicResourceName(tc.project, tc.name), "%s/%s", tc.project, tc.name)
	}
}

func TestCleanNamesDropsBlanks(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b"}, cleanNames([]string{" a ", "", "  ", "b"}))
}

func TestNewClientRequiresProject(t *testing.T) {
	t.Parallel()
	_, err := NewClient(context.Background(), config.GCPConfig{}, []string{"orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
