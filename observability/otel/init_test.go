package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitRejectsBlankServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithNoExportersEnabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "cardledgerd"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}

func TestParseHeadersSplitsPairsAndTrimsWhitespace(t *testing.T) {
	headers := ParseHeaders(" api-key = secret , x-env=staging ,")
	require.Equal(t, map[string]string{"api-key": "secret", "x-env": "staging"}, headers)
}

func TestParseHeadersSkipsEntriesWithoutEquals(t *testing.T) {
	headers := ParseHeaders("valid=1,malformed,another=2")
	require.Equal(t, map[string]string{"valid": "1", "another": "2"}, headers)
}

func TestParseHeadersReturnsEmptyMapForBlankInput(t *testing.T) {
	headers := ParseHeaders("")
	require.Empty(t, headers)
}
