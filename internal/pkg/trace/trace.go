// Package trace 提供请求追踪ID的生成、传递与提取
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"tsu-combat/internal/pkg/ctxkey"
)

const (
	// HeaderTraceID 请求头中的追踪ID字段
	HeaderTraceID = "X-Trace-Id"
	// HeaderRequestID 兼容的请求ID字段
	HeaderRequestID = "X-Request-Id"
	// HeaderTraceparent W3C Trace Context 标准字段
	HeaderTraceparent = "Traceparent"
)

// WithTraceID 将追踪ID写入上下文
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return ctxkey.WithValue(ctx, ctxkey.TraceID, traceID)
}

// GetTraceID 从上下文中获取追踪ID，不存在时返回空字符串
func GetTraceID(ctx context.Context) string {
	return ctxkey.GetString(ctx, ctxkey.TraceID)
}

// GenerateTraceID 生成一个新的追踪ID（16字节随机数的十六进制表示）
func GenerateTraceID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败时退化为固定值，避免请求中断
		return "00000000000000000000000000000000"
	}
	return hex.EncodeToString(buf)
}

// ExtractFromHeader 按优先级从请求头中提取追踪ID
// 依次尝试 X-Trace-Id、X-Request-Id、Traceparent
func ExtractFromHeader(header http.Header) string {
	if id := strings.TrimSpace(header.Get(HeaderTraceID)); id != "" {
		return id
	}
	if id := strings.TrimSpace(header.Get(HeaderRequestID)); id != "" {
		return id
	}
	if tp := strings.TrimSpace(header.Get(HeaderTraceparent)); tp != "" {
		// traceparent 格式: version-traceid-parentid-flags
		parts := strings.Split(tp, "-")
		if len(parts) >= 2 && len(parts[1]) == 32 {
			return parts[1]
		}
	}
	return ""
}
