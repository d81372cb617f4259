package news

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

const Notice = "Data provided by Naver News API. Redistribution and storage prohibited."

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var kst = time.FixedZone("KST", 9*60*60)

// 主要媒体域名 -> 显示名，按顺序匹配
var publishers = []struct {
	domain string
	name   string
}{
	{"chosun.com", "조선일보"},
	{"joongang.co.kr", "중앙일보"},
	{"donga.com", "동아일보"},
	{"hani.co.kr", "한겨레"},
	{"khan.co.kr", "경향신문"},
	{"ytn.co.kr", "YTN"},
	{"sbs.co.kr", "SBS"},
	{"kbs.co.kr", "KBS"},
	{"mbc.co.kr", "MBC"},
	{"yonhapnews.co.kr", "연합뉴스"},
	{"mk.co.kr", "매일경제"},
	{"hankyung.com", "한국경제"},
	{"dt.co.kr", "디지털타임스"},
	{"koreaherald.com", "Korea Herald"},
}

// StripTags 去掉 HTML 标签
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// FormatDate RFC1123Z 转为 "2006년 1월 2일"，解析失败原样返回
func FormatDate(pubDate string) string {
	t, err := time.Parse(time.RFC1123Z, pubDate)
	if err != nil {
		return pubDate
	}
	return t.In(kst).Format("2006년 1월 2일")
}

// Source 从链接推断出处，优先使用原文链接
func Source(originalLink, link string) string {
	raw := originalLink
	if raw == "" {
		raw = link
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}

	hostname := strings.ToLower(u.Hostname())
	for _, p := range publishers {
		if strings.Contains(hostname, p.domain) {
			return p.name
		}
	}
	return strings.Replace(hostname, "www.", "", 1)
}
