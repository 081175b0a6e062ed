// Package response 提供统一的 API 响应封装
package response

import (
	"time"

	"tsu-combat/internal/pkg/xerrors"
)

// EmptyData 用于在成功响应中表示“无数据”
// 使用具体的空结构体比返回 nil 更类型安全、意图更明确
type EmptyData struct{}

// APIResponse 通用API响应结构
type APIResponse struct {
	Code      int    `json:"code"`               // 业务响应码
	Message   string `json:"message"`            // 响应消息
	Data      any    `json:"data,omitempty"`     // 响应数据，成功时返回
	Error     string `json:"error,omitempty"`    // 错误详情，失败时返回
	Timestamp int64  `json:"timestamp"`          // Unix时间戳
	TraceID   string `json:"trace_id,omitempty"` // 请求追踪ID
}

// NewSuccess 创建成功响应
func NewSuccess(data any) *APIResponse {
	return &APIResponse{
		Code:      int(xerrors.CodeSuccess),
		Message:   "操作成功",
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// NewError 创建失败响应
func NewError(code int, message string, detail string) *APIResponse {
	return &APIResponse{
		Code:      code,
		Message:   message,
		Error:     detail,
		Timestamp: time.Now().Unix(),
	}
}
