package timedtext

import (
	"Youtube-Monster/internal/models"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const captionDoc = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0" dur="4">hello there</text>
  <text start="5.2" dur="5">welcome back</text>
</transcript>`

const trackListDoc = `<?xml version="1.0" encoding="utf-8"?>
<transcript_list>
  <track id="0" lang_code="en" name="" kind="asr"/>
  <track id="1" lang_code="ja" name="日本語"/>
</transcript_list>`

func TestFetchSendsExpectedParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		w.Write([]byte(captionDoc))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	segments, err := client.Fetch(context.Background(), "dQw4w9WgXcQ", "en")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].OffsetMs)
	assert.Equal(t, "hello there", segments[0].Text)
	assert.Equal(t, 5200, segments[1].OffsetMs)
}

func TestFetchEmptyDocumentYieldsZeroSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?><transcript></transcript>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	segments, err := client.Fetch(context.Background(), "dQw4w9WgXcQ", "fr")
	// 無字幕是空文件，不是傳輸錯誤；由呼叫端決定語意
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestFetchNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Fetch(context.Background(), "dQw4w9WgXcQ", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchTrackIncludesNameAndKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ja", r.URL.Query().Get("lang"))
		assert.Equal(t, "日本語", r.URL.Query().Get("name"))
		assert.Equal(t, "asr", r.URL.Query().Get("kind"))
		w.Write([]byte(captionDoc))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	segments, err := client.FetchTrack(context.Background(), "dQw4w9WgXcQ", models.CaptionTrack{
		LangCode: "ja", Name: "日本語", Kind: "asr",
	})
	require.NoError(t, err)
	assert.Len(t, segments, 2)
}

func TestFetchTrackOmitsEmptyOptionalParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasName := r.URL.Query()["name"]
		_, hasKind := r.URL.Query()["kind"]
		assert.False(t, hasName)
		assert.False(t, hasKind)
		w.Write([]byte(captionDoc))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchTrack(context.Background(), "dQw4w9WgXcQ", models.CaptionTrack{LangCode: "en"})
	require.NoError(t, err)
}

func TestListTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "list", r.URL.Query().Get("type"))
		w.Write([]byte(trackListDoc))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	tracks, err := client.ListTracks(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "en", tracks[0].LangCode)
	assert.Equal(t, "asr", tracks[0].Kind)
	assert.Equal(t, "ja", tracks[1].LangCode)
	assert.Equal(t, "日本語", tracks[1].Name)
}
