package response

import (
	"context"
	"encoding/json"
	"net/http"

	"tsu-combat/internal/pkg/log"
	"tsu-combat/internal/pkg/trace"
	"tsu-combat/internal/pkg/xerrors"
)

// Writer 统一的响应写入接口，Handler 层通过它输出所有响应
type Writer interface {
	// WriteSuccess 写入成功响应（HTTP 200 + 业务成功码）
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	// WriteError 写入错误响应，自动从 AppError 中提取业务码与HTTP状态
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
	// WriteJSON 直接写入 JSON 响应，跳过 APIResponse 包装
	WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error
}

// ResponseHandler Writer 的默认实现
type ResponseHandler struct {
	logger      log.Logger
	environment string
}

// NewResponseHandler 创建响应处理器
// 生产环境下错误详情不会透出到响应体
func NewResponseHandler(logger log.Logger, environment string) *ResponseHandler {
	return &ResponseHandler{
		logger:      logger,
		environment: environment,
	}
}

// DefaultResponseHandler 使用全局 logger 与开发环境配置，测试中使用
func DefaultResponseHandler() *ResponseHandler {
	return NewResponseHandler(log.GetLogger(), "development")
}

// WriteSuccess 实现 Writer 接口
func (h *ResponseHandler) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	resp := NewSuccess(data)
	resp.TraceID = trace.GetTraceID(ctx)
	return h.write(ctx, w, http.StatusOK, resp)
}

// WriteError 实现 Writer 接口
func (h *ResponseHandler) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	appErr := xerrors.Wrap(err, xerrors.CodeInternalError, "服务内部错误")

	detail := ""
	if h.environment != "production" && appErr.Err != nil {
		detail = appErr.Err.Error()
	}

	resp := NewError(int(appErr.Code), appErr.Message, detail)
	resp.TraceID = trace.GetTraceID(ctx)
	return h.write(ctx, w, xerrors.GetHTTPStatus(appErr.Code), resp)
}

// WriteJSON 实现 Writer 接口
func (h *ResponseHandler) WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	return h.write(ctx, w, statusCode, data)
}

func (h *ResponseHandler) write(ctx context.Context, w http.ResponseWriter, statusCode int, body any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// header 已写入，此处只能记录日志
		h.logger.Error("写入JSON响应失败", err,
			log.String("trace_id", trace.GetTraceID(ctx)),
		)
		return err
	}
	return nil
}
