package pipeline_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/vidlens/pipeline"
	"github.com/BaSui01/vidlens/testutil"
	"github.com/BaSui01/vidlens/testutil/mocks"
)

// The aggregated answer must equal the exact concatenation of streamed
// fragments, for any fragment sequence: no separators, no trimming, no
// reordering.
func TestInfer_AnswerIsExactConcatenation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chunks := rapid.SliceOfN(rapid.String(), 0, 32).Draw(rt, "chunks")

		backend := &mocks.Backend{
			Script: []mocks.StreamCall{{Chunks: chunks}},
		}
		orch := pipeline.NewOrchestrator(backend, 1, time.Millisecond, time.Minute, zap.NewNop())

		result, err := orch.Infer(testutil.TestContext(t), "describe", activeAsset())
		require.NoError(rt, err)
		require.Equal(rt, strings.Join(chunks, ""), result.Answer)
	})
}
