package dto

// NewsItem 归一化后的新闻条目
type NewsItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	Link        string `json:"link"`
}

// NewsSearchResponse 新闻搜索结果
type NewsSearchResponse struct {
	Total       int        `json:"total"`
	Start       int        `json:"start"`
	Display     int        `json:"display"`
	Items       []NewsItem `json:"items"`
	Notice      string     `json:"notice"`
	LastUpdated string     `json:"lastUpdated"`
}

// NewsErrorResponse 新闻接口错误
type NewsErrorResponse struct {
	Error string `json:"error"`
}
