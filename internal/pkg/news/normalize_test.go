package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	assert.Equal(t, "삼성전자 실적 발표", StripTags("<b>삼성전자</b> 실적 발표"))
	assert.Equal(t, "plain", StripTags("plain"))
	assert.Equal(t, "", StripTags("<br/>"))
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"KST", "Mon, 02 Jun 2025 09:30:00 +0900", "2025년 6월 2일"},
		{"UTC converted to KST", "Mon, 02 Jun 2025 20:00:00 +0000", "2025년 6월 3일"},
		{"unparsable", "yesterday", "yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(tt.in))
		})
	}
}

func TestSource(t *testing.T) {
	tests := []struct {
		name     string
		original string
		link     string
		want     string
	}{
		{"known publisher", "https://www.chosun.com/economy/1", "https://n.news.naver.com/1", "조선일보"},
		{"subdomain", "https://biz.hankyung.com/a", "", "한국경제"},
		{"falls back to link", "", "https://www.yonhapnews.co.kr/view/1", "연합뉴스"},
		{"unknown host strips www", "https://www.example-news.kr/a", "", "example-news.kr"},
		{"unparsable", "::not a url", "", "Unknown"},
		{"empty", "", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Source(tt.original, tt.link))
		})
	}
}
