package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/model/dto"
)

const (
	DefaultDisplay = 10
	MaxDisplay     = 100
	DefaultStart   = 1
	SortSim        = "sim"
	SortDate       = "date"

	searchPath = "/v1/search/news.json"
	userAgent  = "KHIP-InsightSaas/1.0"
)

var (
	ErrEmptyQuery    = errors.New("search query is required")
	ErrNotConfigured = errors.New("naver api credentials not configured")
)

// UpstreamError 上游返回非 2xx
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("naver api error: %d %s", e.StatusCode, e.Body)
}

type SearchParams struct {
	Query   string
	Display int
	Start   int
	Sort    string
}

// ParseSearchParams 从查询参数构造，非法数字按默认值处理
func ParseSearchParams(query, display, start, sort string) SearchParams {
	p := SearchParams{Query: query, Sort: sort}
	if n, err := strconv.Atoi(display); err == nil {
		p.Display = n
	}
	if n, err := strconv.Atoi(start); err == nil {
		p.Start = n
	}
	return p.Normalize()
}

// Normalize display 限制在 [1,100]，start 至少为 1
func (p SearchParams) Normalize() SearchParams {
	p.Query = strings.TrimSpace(p.Query)
	if p.Display <= 0 {
		p.Display = DefaultDisplay
	}
	if p.Display > MaxDisplay {
		p.Display = MaxDisplay
	}
	if p.Start < DefaultStart {
		p.Start = DefaultStart
	}
	if p.Sort != SortDate {
		p.Sort = SortSim
	}
	return p
}

type naverItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

type naverResponse struct {
	LastBuildDate string      `json:"lastBuildDate"`
	Total         int         `json:"total"`
	Start         int         `json:"start"`
	Display       int         `json:"display"`
	Items         []naverItem `json:"items"`
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	logger       *zap.Logger
}

func NewClient(cfg config.NaverConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openapi.naver.com"
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger,
	}
}

// Search 实时搜索新闻，结果不缓存也不落库
func (c *Client) Search(ctx context.Context, params SearchParams) (*dto.NewsSearchResponse, error) {
	params = params.Normalize()
	if params.Query == "" {
		return nil, ErrEmptyQuery
	}
	if c.clientID == "" || c.clientSecret == "" {
		c.logger.Error("naver api credentials not configured")
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("display", strconv.Itoa(params.Display))
	q.Set("start", strconv.Itoa(params.Start))
	q.Set("sort", params.Sort)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call naver api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("naver api error", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var data naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode naver response: %w", err)
	}

	items := make([]dto.NewsItem, 0, len(data.Items))
	for _, item := range data.Items {
		items = append(items, dto.NewsItem{
			Title:       StripTags(item.Title),
			Description: StripTags(item.Description),
			Date:        FormatDate(item.PubDate),
			Source:      Source(item.OriginalLink, item.Link),
			Link:        item.Link,
		})
	}

	return &dto.NewsSearchResponse{
		Total:       data.Total,
		Start:       data.Start,
		Display:     data.Display,
		Items:       items,
		Notice:      Notice,
		LastUpdated: data.LastBuildDate,
	}, nil
}
