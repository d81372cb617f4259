package oss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/khip_server/config"
)

func TestReportObjectKey(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.Equal(t, "reports/purchase_1/1700000000.pdf", ReportObjectKey("purchase_1", "Samsung Report.PDF", now))
	assert.Equal(t, "reports/purchase_1/1700000000", ReportObjectKey("purchase_1", "noext", now))
}

func TestGetContentType(t *testing.T) {
	tests := map[string]string{
		".pdf":  "application/pdf",
		".PDF":  "application/pdf",
		".html": "text/html; charset=utf-8",
		".json": "application/json",
		".bin":  "application/octet-stream",
		"":      "application/octet-stream",
	}

	for ext, want := range tests {
		assert.Equal(t, want, getContentType(ext), "ext %q", ext)
	}
}

func TestClient_GetURL(t *testing.T) {
	t.Run("cdn domain", func(t *testing.T) {
		c := &Client{bucketName: "khip", endpoint: "oss-cn-hangzhou.aliyuncs.com", cdnDomain: "cdn.khip.com"}
		assert.Equal(t, "https://cdn.khip.com/reports/p/1.pdf", c.GetURL("reports/p/1.pdf"))
	})

	t.Run("bucket endpoint", func(t *testing.T) {
		c := &Client{bucketName: "khip", endpoint: "https://oss-cn-hangzhou.aliyuncs.com"}
		assert.Equal(t, "https://khip.oss-cn-hangzhou.aliyuncs.com/reports/p/1.pdf", c.GetURL("reports/p/1.pdf"))
	})
}

func TestNewClient(t *testing.T) {
	// 创建客户端不发起网络请求
	c, err := NewClient(&config.OSSConfig{
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "id",
		AccessKeySecret: "secret",
		BucketName:      "khip",
	})
	require.NoError(t, err)
	assert.Contains(t, c.GetURL("a.pdf"), "khip.")
	assert.Contains(t, c.GetURL("a.pdf"), "/a.pdf")
}
