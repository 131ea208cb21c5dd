package vidlens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_RequiredOptions(t *testing.T) {
	ctx := context.Background()

	_, err := Analyze(ctx, Options{URL: "https://youtu.be/x", Prompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")

	_, err = Analyze(ctx, Options{APIKey: "k", Prompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL and Prompt")

	_, err = Analyze(ctx, Options{APIKey: "k", URL: "https://youtu.be/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL and Prompt")

	_, err = Analyze(ctx, Options{APIKey: "  ", URL: "https://youtu.be/x", Prompt: "q"})
	require.Error(t, err, "whitespace-only values do not count")
}
