package services

import (
	"Youtube-Monster/internal/models"
	"Youtube-Monster/internal/scoring"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	segments []models.TranscriptSegment
	method   models.ExtractionMethod
	err      error
	calls    int
}

func (s *stubFetcher) FetchTranscript(_ context.Context, videoID string) ([]models.TranscriptSegment, models.ExtractionMethod, error) {
	s.calls++
	if s.err != nil {
		return nil, models.MethodFailed, s.err
	}
	return s.segments, s.method, nil
}

type stubSegmentClassifier struct {
	events          []models.AnalysisEvent
	lastSensitivity int
	lastMaxTs       int
	calls           int
}

func (s *stubSegmentClassifier) Classify(_ context.Context, _ []models.TranscriptSegment, sensitivity int, maxTimestampSec int) []models.AnalysisEvent {
	s.calls++
	s.lastSensitivity = sensitivity
	s.lastMaxTs = maxTimestampSec
	return s.events
}

type stubStore struct {
	saved         []*models.AnalysisRecord
	failed        []models.AnalysisRecord
	statusUpdates map[int64]models.AnalysisStatus
	saveErr       error
}

func (s *stubStore) SaveAnalysis(record *models.AnalysisRecord) (int64, error) {
	s.saved = append(s.saved, record)
	return int64(len(s.saved)), s.saveErr
}

func (s *stubStore) GetFailedAnalyses(limit int) ([]models.AnalysisRecord, error) {
	if len(s.failed) > limit {
		return s.failed[:limit], nil
	}
	return s.failed, nil
}

func (s *stubStore) UpdateAnalysisStatus(id int64, status models.AnalysisStatus) error {
	if s.statusUpdates == nil {
		s.statusUpdates = map[int64]models.AnalysisStatus{}
	}
	s.statusUpdates[id] = status
	return nil
}

func newAnalyzeService(t *testing.T, fetcher TranscriptFetcher, classifier SegmentClassifier, db AnalysisStore) *AnalyzeService {
	t.Helper()
	svc, err := NewAnalyzeService(fetcher, classifier, scoring.DefaultPenaltyTable(), db)
	require.NoError(t, err)
	return svc
}

func TestAnalyzeScenario(t *testing.T) {
	// 10 秒影片、兩個字幕段，第二段在第 5 秒標記 Hostility（權重 2）→ 評分 10/2 = 5.0
	fetcher := &stubFetcher{
		segments: []models.TranscriptSegment{
			{OffsetMs: 0, Text: "hello there", DurationMs: 4000},
			{OffsetMs: 5000, Text: "you idiots", DurationMs: 5000},
		},
		method: models.MethodCaptionTrack,
	}
	classifier := &stubSegmentClassifier{
		events: []models.AnalysisEvent{{
			TimestampSec: 5,
			Category:     models.CategoryNegativeSpeech,
			SubCategory:  "Hostility",
			Description:  "Speaker insults the audience.",
			Phrase:       "you idiots",
		}},
	}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{
		VideoID:          "dQw4w9WgXcQ",
		VideoDurationSec: floatPtr(10),
	})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, 5, resp.Events[0].TimestampSec)
	assert.Equal(t, models.MethodCaptionTrack, resp.ExtractionMethod)
	assert.Equal(t, 2, resp.TranscriptSegmentCount)
	require.Equal(t, scoring.KindFinite, resp.Score.Kind)
	assert.InDelta(t, 5.0, resp.Score.Value, 1e-9)
}

func TestAnalyzeInvalidVideoID(t *testing.T) {
	fetcher := &stubFetcher{}
	classifier := &stubSegmentClassifier{}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "short"})
	require.Error(t, err)
	// 驗證失敗時不做任何後續工作
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 0, classifier.calls)
}

func TestAnalyzeMaxTimestampFromDuration(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	classifier := &stubSegmentClassifier{}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	// 時長 > 10 秒：以實際時長為分析上限
	_, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ", VideoDurationSec: floatPtr(120)})
	require.NoError(t, err)
	assert.Equal(t, 120, classifier.lastMaxTs)

	// 時長 <= 10 秒視為不可信：退回預設上限
	_, err = svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ", VideoDurationSec: floatPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTimestampSec, classifier.lastMaxTs)

	// 未提供時長：也用預設上限
	_, err = svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTimestampSec, classifier.lastMaxTs)
}

func TestAnalyzeSensitivityNormalized(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	classifier := &stubSegmentClassifier{}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ", Sensitivity: floatPtr(42)})
	require.NoError(t, err)
	assert.Equal(t, MaxSensitivity, classifier.lastSensitivity)

	_, err = svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, DefaultSensitivity, classifier.lastSensitivity)
}

func TestAnalyzeSortsEventsByTimestamp(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodPageScrape}
	classifier := &stubSegmentClassifier{
		events: []models.AnalysisEvent{
			{TimestampSec: 42, Category: models.CategoryNegativeSpeech, SubCategory: "Hostility", Description: "d", Phrase: "p"},
			{TimestampSec: 3, Category: models.CategoryPotentialEmotions, SubCategory: "Angry", Description: "d", Phrase: "p"},
			{TimestampSec: 17, Category: models.CategoryNegativeBehavior, SubCategory: "Bullying", Description: "d", Phrase: "p"},
		},
	}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, 3, resp.Events[0].TimestampSec)
	assert.Equal(t, 17, resp.Events[1].TimestampSec)
	assert.Equal(t, 42, resp.Events[2].TimestampSec)
}

func TestAnalyzeNoEventsPerfectScore(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	classifier := &stubSegmentClassifier{}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ", VideoDurationSec: floatPtr(60)})
	require.NoError(t, err)
	assert.NotNil(t, resp.Events)
	assert.Empty(t, resp.Events)
	assert.Equal(t, scoring.KindPerfect, resp.Score.Kind)
}

func TestAnalyzeUnknownScoreWithoutDuration(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	classifier := &stubSegmentClassifier{
		events: []models.AnalysisEvent{
			{TimestampSec: 5, Category: models.CategoryNegativeSpeech, SubCategory: "Hostility", Description: "d", Phrase: "p"},
		},
	}
	svc := newAnalyzeService(t, fetcher, classifier, nil)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, scoring.KindUnknown, resp.Score.Kind)
}

func TestAnalyzeSavesCompletedRecord(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	classifier := &stubSegmentClassifier{
		events: []models.AnalysisEvent{
			{TimestampSec: 5, Category: models.CategoryNegativeSpeech, SubCategory: "Hostility", Description: "d", Phrase: "p"},
		},
	}
	store := &stubStore{}
	svc := newAnalyzeService(t, fetcher, classifier, store)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ", VideoDurationSec: floatPtr(10)})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	record := store.saved[0]
	assert.Equal(t, "dQw4w9WgXcQ", record.VideoID)
	assert.Equal(t, models.StatusCompleted, record.Status)
	assert.Equal(t, string(models.MethodCaptionTrack), record.ExtractionMethod)
	assert.Equal(t, 2, record.SegmentCount)
	assert.Equal(t, "finite", record.ScoreKind)
	require.True(t, record.ScoreValue.Valid)
	assert.InDelta(t, 5.0, record.ScoreValue.Float64, 1e-9)
	require.True(t, record.DurationSec.Valid)
	assert.EqualValues(t, 10, record.DurationSec.Int64)

	var savedEvents []models.AnalysisEvent
	require.NoError(t, json.Unmarshal(record.Events, &savedEvents))
	require.Len(t, savedEvents, 1)
	assert.Equal(t, "Hostility", savedEvents[0].SubCategory)
}

func TestAnalyzeSavesFailedRecord(t *testing.T) {
	fetcher := &stubFetcher{err: fmt.Errorf("所有逐字稿取得策略皆失敗 (影片: dQw4w9WgXcQ)")}
	classifier := &stubSegmentClassifier{}
	store := &stubStore{}
	svc := newAnalyzeService(t, fetcher, classifier, store)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ"})
	require.Error(t, err)
	assert.Equal(t, 0, classifier.calls)

	require.Len(t, store.saved, 1)
	record := store.saved[0]
	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Equal(t, string(models.MethodFailed), record.ExtractionMethod)
	require.True(t, record.ErrorMessage.Valid)
	assert.Contains(t, record.ErrorMessage.String, "皆失敗")
	assert.Equal(t, "unknown", record.ScoreKind)
}

func TestAnalyzeStoreFailureDoesNotAffectResponse(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	store := &stubStore{saveErr: fmt.Errorf("資料庫連線中斷")}
	svc := newAnalyzeService(t, fetcher, &stubSegmentClassifier{}, store)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{VideoID: "dQw4w9WgXcQ", VideoDurationSec: floatPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TranscriptSegmentCount)
}

func TestExecuteRetryPipeline(t *testing.T) {
	fetcher := &stubFetcher{segments: sampleSegments(), method: models.MethodCaptionTrack}
	classifier := &stubSegmentClassifier{}
	store := &stubStore{
		failed: []models.AnalysisRecord{
			{ID: 7, VideoID: "dQw4w9WgXcQ", Sensitivity: 8, Status: models.StatusFailed},
		},
	}
	svc := newAnalyzeService(t, fetcher, classifier, store)

	require.NoError(t, svc.ExecuteRetryPipeline())
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 8, classifier.lastSensitivity)
	// 無論成功與否都標記為已重試，避免重複撿起
	assert.Equal(t, models.StatusRetried, store.statusUpdates[7])
	// 重試成功會寫入一筆新的完成紀錄
	require.Len(t, store.saved, 1)
	assert.Equal(t, models.StatusCompleted, store.saved[0].Status)
}

func TestExecuteRetryPipelineNoFailures(t *testing.T) {
	svc := newAnalyzeService(t, &stubFetcher{}, &stubSegmentClassifier{}, &stubStore{})
	require.NoError(t, svc.ExecuteRetryPipeline())
}
