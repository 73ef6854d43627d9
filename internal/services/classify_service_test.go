package services

import (
	"Youtube-Monster/internal/models"
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifyOracle struct {
	fn    func(prompt string) (string, error)
	calls int64
}

func (s *stubClassifyOracle) ClassifySegment(_ context.Context, prompt string) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.fn == nil {
		return "", nil
	}
	return s.fn(prompt)
}

func (s *stubClassifyOracle) callCount() int {
	return int(atomic.LoadInt64(&s.calls))
}

func newClassifyService(t *testing.T, oracle ClassifyOracle) *ClassifyService {
	t.Helper()
	svc, err := NewClassifyService(oracle, 4, time.Second)
	require.NoError(t, err)
	return svc
}

func floatPtr(v float64) *float64 { return &v }

func TestNormalizeSensitivity(t *testing.T) {
	cases := []struct {
		name  string
		input *float64
		want  int
	}{
		{"未提供", nil, DefaultSensitivity},
		{"NaN", floatPtr(math.NaN()), DefaultSensitivity},
		{"正無限大", floatPtr(math.Inf(1)), DefaultSensitivity},
		{"負無限大", floatPtr(math.Inf(-1)), DefaultSensitivity},
		{"低於下限", floatPtr(-2), MinSensitivity},
		{"四捨五入到零後夾到下限", floatPtr(0.4), MinSensitivity},
		{"超過上限", floatPtr(42), MaxSensitivity},
		{"四捨五入", floatPtr(7.6), 8},
		{"範圍內整數", floatPtr(3), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeSensitivity(tc.input))
		})
	}
	// 正規化是冪等的
	for _, v := range []float64{1, 5, 10, 0.4, 42} {
		once := NormalizeSensitivity(&v)
		f := float64(once)
		assert.Equal(t, once, NormalizeSensitivity(&f))
	}
}

func TestClassifySkipsSegmentsBeyondMaxTimestamp(t *testing.T) {
	oracle := &stubClassifyOracle{}
	svc := newClassifyService(t, oracle)

	segments := []models.TranscriptSegment{
		{OffsetMs: 0, Text: "inside", DurationMs: 5000},
		{OffsetMs: 200_000, Text: "also inside", DurationMs: 5000},
		{OffsetMs: 500_000, Text: "beyond the end", DurationMs: 5000},
		{OffsetMs: 900_000, Text: "way beyond", DurationMs: 5000},
	}
	events := svc.Classify(context.Background(), segments, DefaultSensitivity, DefaultMaxTimestampSec)
	assert.Empty(t, events)
	// 超出時長的段落連預言機都不會看到
	assert.Equal(t, 2, oracle.callCount())
}

func TestClassifyParsesFlaggedEvent(t *testing.T) {
	oracle := &stubClassifyOracle{
		fn: func(prompt string) (string, error) {
			return "```json\n{\"category\": \"Negative Speech\", \"subCategory\": \"Hostility\", \"description\": \"Speaker insults the audience.\", \"phrase\": \"you idiots\"}\n```", nil
		},
	}
	svc := newClassifyService(t, oracle)

	segments := []models.TranscriptSegment{{OffsetMs: 5000, Text: "you idiots", DurationMs: 4000}}
	events := svc.Classify(context.Background(), segments, DefaultSensitivity, DefaultMaxTimestampSec)
	require.Len(t, events, 1)
	assert.Equal(t, 5, events[0].TimestampSec)
	assert.Equal(t, models.CategoryNegativeSpeech, events[0].Category)
	assert.Equal(t, "Hostility", events[0].SubCategory)
	assert.Equal(t, "you idiots", events[0].Phrase)
}

func TestClassifyBlankResponseMeansClean(t *testing.T) {
	for _, raw := range []string{"", "  ", `""`, "\n"} {
		oracle := &stubClassifyOracle{fn: func(string) (string, error) { return raw, nil }}
		svc := newClassifyService(t, oracle)
		events := svc.Classify(context.Background(),
			[]models.TranscriptSegment{{OffsetMs: 0, Text: "hello", DurationMs: 1000}},
			DefaultSensitivity, DefaultMaxTimestampSec)
		assert.Empty(t, events, "raw=%q", raw)
	}
}

func TestClassifyDropsMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"純雜訊":    "I cannot comply with that request.",
		"破損 JSON": `{"category": "Negative Speech", "subCategory":`,
		"缺少必要欄位": `{"category": "Negative Speech", "subCategory": "Hostility"}`,
		"型別錯誤":   `[1, 2, 3]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			oracle := &stubClassifyOracle{fn: func(string) (string, error) { return raw, nil }}
			svc := newClassifyService(t, oracle)
			events := svc.Classify(context.Background(),
				[]models.TranscriptSegment{{OffsetMs: 0, Text: "hello", DurationMs: 1000}},
				DefaultSensitivity, DefaultMaxTimestampSec)
			assert.Empty(t, events)
		})
	}
}

func TestClassifyExtractsObjectFromChatter(t *testing.T) {
	oracle := &stubClassifyOracle{
		fn: func(string) (string, error) {
			return `Sure, here is the analysis: {"category": "Negative Behavior", "subCategory": "Bullying", "description": "Speaker mocks a classmate.", "phrase": "nobody likes you"} Hope this helps!`, nil
		},
	}
	svc := newClassifyService(t, oracle)
	events := svc.Classify(context.Background(),
		[]models.TranscriptSegment{{OffsetMs: 30_000, Text: "nobody likes you", DurationMs: 2000}},
		DefaultSensitivity, DefaultMaxTimestampSec)
	require.Len(t, events, 1)
	assert.Equal(t, "Bullying", events[0].SubCategory)
	assert.Equal(t, 30, events[0].TimestampSec)
}

func TestClassifySingleFailureDoesNotAbortBatch(t *testing.T) {
	var n int64
	oracle := &stubClassifyOracle{
		fn: func(prompt string) (string, error) {
			if atomic.AddInt64(&n, 1) == 1 {
				return "", assert.AnError
			}
			return `{"category": "Potential Emotions", "subCategory": "Angry", "description": "Speaker sounds furious.", "phrase": "I am done"}`, nil
		},
	}
	svc, err := NewClassifyService(oracle, 1, time.Second)
	require.NoError(t, err)

	segments := []models.TranscriptSegment{
		{OffsetMs: 0, Text: "first", DurationMs: 1000},
		{OffsetMs: 1000, Text: "I am done", DurationMs: 1000},
	}
	events := svc.Classify(context.Background(), segments, DefaultSensitivity, DefaultMaxTimestampSec)
	require.Len(t, events, 1)
	assert.Equal(t, "Angry", events[0].SubCategory)
}

func TestClassifyAllSegmentsFlagged(t *testing.T) {
	oracle := &stubClassifyOracle{
		fn: func(string) (string, error) {
			return `{"category": "Negative Speech", "subCategory": "Hostility", "description": "Hostile remark.", "phrase": "x"}`, nil
		},
	}
	svc := newClassifyService(t, oracle)

	var segments []models.TranscriptSegment
	for i := 0; i < 10; i++ {
		segments = append(segments, models.TranscriptSegment{OffsetMs: i * 5000, Text: "x", DurationMs: 5000})
	}
	events := svc.Classify(context.Background(), segments, DefaultSensitivity, DefaultMaxTimestampSec)
	assert.Len(t, events, 10)
	assert.Equal(t, 10, oracle.callCount())
}

func TestClassifyOutOfRangeSensitivityFallsBack(t *testing.T) {
	var seen string
	oracle := &stubClassifyOracle{
		fn: func(prompt string) (string, error) {
			seen = prompt
			return "", nil
		},
	}
	svc := newClassifyService(t, oracle)
	svc.Classify(context.Background(),
		[]models.TranscriptSegment{{OffsetMs: 0, Text: "hello", DurationMs: 1000}},
		99, DefaultMaxTimestampSec)
	assert.Contains(t, seen, "sensitivity index (5)")
}

func TestBuildClassifyPromptEmbedsCatalog(t *testing.T) {
	prompt := buildClassifyPrompt("some transcript text", 7)
	assert.Contains(t, prompt, "sensitivity index (7)")
	assert.Contains(t, prompt, "some transcript text")
	assert.Contains(t, prompt, "Carl Jung")
	for _, sub := range models.NegativeSpeechSubCategories {
		assert.Contains(t, prompt, sub)
	}
	for _, sub := range models.NegativeBehaviorSubCategories {
		assert.Contains(t, prompt, sub)
	}
	for _, sub := range models.PotentialEmotionsSubCategories {
		assert.Contains(t, prompt, sub)
	}
}
