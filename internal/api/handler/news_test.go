package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/news"
)

func setupNewsRouter(t *testing.T, upstream http.HandlerFunc, cfg config.NaverConfig) (*gin.Engine, func()) {
	t.Helper()

	server := httptest.NewServer(upstream)
	cfg.BaseURL = server.URL

	h := NewNewsHandler(news.NewClient(cfg, server.Client(), nil), nil)
	router := gin.New()
	router.GET("/news", h.Search)
	return router, server.Close
}

var testNaverConfig = config.NaverConfig{ClientID: "id", ClientSecret: "secret"}

func TestNewsHandler_Search(t *testing.T) {
	router, cleanup := setupNewsRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "삼성전자", r.URL.Query().Get("query"))
		assert.Equal(t, "100", r.URL.Query().Get("display"))
		assert.Equal(t, "date", r.URL.Query().Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"lastBuildDate": "Mon, 02 Jun 2025 09:00:00 +0900",
			"total": 1, "start": 1, "display": 1,
			"items": [{
				"title": "<b>삼성전자</b> 실적",
				"originallink": "https://www.chosun.com/economy/1",
				"link": "https://n.news.naver.com/1",
				"description": "분기 <b>실적</b> 발표",
				"pubDate": "Mon, 02 Jun 2025 08:30:00 +0900"
			}]
		}`))
	}, testNaverConfig)
	defer cleanup()

	w := performRequest(router, "GET", "/news?q=%EC%82%BC%EC%84%B1%EC%A0%84%EC%9E%90&display=500&sort=date", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.NewsSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "삼성전자 실적", resp.Items[0].Title)
	assert.Equal(t, "조선일보", resp.Items[0].Source)
	assert.Equal(t, "2025년 6월 2일", resp.Items[0].Date)
	assert.Equal(t, news.Notice, resp.Notice)
}

func TestNewsHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.NaverConfig
		status     int
		query      string
		wantStatus int
	}{
		{"empty query", testNaverConfig, http.StatusOK, "/news?q=%20", http.StatusBadRequest},
		{"missing credentials", config.NaverConfig{}, http.StatusOK, "/news?q=kospi", http.StatusInternalServerError},
		{"upstream rate limited", testNaverConfig, http.StatusTooManyRequests, "/news?q=kospi", http.StatusTooManyRequests},
		{"upstream unauthorized", testNaverConfig, http.StatusUnauthorized, "/news?q=kospi", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, cleanup := setupNewsRouter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errorMessage":"nope"}`))
			}, tt.cfg)
			defer cleanup()

			w := performRequest(router, "GET", tt.query, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp dto.NewsErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}
