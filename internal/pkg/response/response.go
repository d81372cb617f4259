package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess             = 0
	CodeParamError          = 1000
	CodeAuthFailed          = 1001
	CodePermissionDenied    = 1002
	CodeResourceNotFound    = 1003
	CodeEntitlementRequired = 1004
	CodeDuplicateAction     = 1005
	CodeServiceUnavailable  = 5003
	CodeServerError         = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:             "success",
	CodeParamError:          "Invalid parameters",
	CodeAuthFailed:          "Authentication failed",
	CodePermissionDenied:    "Permission denied",
	CodeResourceNotFound:    "Resource not found",
	CodeEntitlementRequired: "Purchase required",
	CodeDuplicateAction:     "Duplicate action",
	CodeServiceUnavailable:  "Service unavailable",
	CodeServerError:         "Internal server error",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应，message 为空时使用默认消息
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// EntitlementError 没有购买对应的权益
func EntitlementError(c *gin.Context, message string) {
	Error(c, CodeEntitlementRequired, message)
}

func DuplicateError(c *gin.Context, message string) {
	Error(c, CodeDuplicateAction, message)
}

// UnavailableError 依赖的外部服务未配置或不可用
func UnavailableError(c *gin.Context, message string) {
	Error(c, CodeServiceUnavailable, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
