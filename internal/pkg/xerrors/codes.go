// File: internal/pkg/xerrors/codes.go
package xerrors

import "fmt"

// ErrorCode 错误码类型（类型安全）
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (未定义的错误码)", c)
}

// Message 返回错误码对应的消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "未知错误"
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// 按模块或领域对错误码进行分段，便于管理。
// -----------------------------------------------------------------------------
const (
	// 1xxxxx: 通用错误码
	CodeSuccess           ErrorCode = 100000 // 操作成功
	CodeInternalError     ErrorCode = 100001 // 内部服务错误
	CodeInvalidParams     ErrorCode = 100002 // 参数错误
	CodeInvalidRequest    ErrorCode = 100003 // 请求格式错误
	CodeResourceNotFound  ErrorCode = 100404 // 资源不存在
	CodeDuplicateResource ErrorCode = 100409 // 资源已存在
	CodeRateLimitExceeded ErrorCode = 100429 // 请求频率限制

	// 6xxxxx: 业务逻辑错误码
	CodeBusinessLogicError  ErrorCode = 600001 // 业务逻辑错误
	CodeDataIntegrityError  ErrorCode = 600002 // 数据完整性错误
	CodeOperationNotAllowed ErrorCode = 600003 // 操作不被允许
	CodeResourceLocked      ErrorCode = 600004 // 资源被锁定

	// 7xxxxx: 外部服务错误码
	CodeExternalServiceError ErrorCode = 700001 // 外部服务错误
	CodeDatabaseError        ErrorCode = 700003 // 数据库错误
	CodeCacheError           ErrorCode = 700004 // 缓存服务错误
	CodeMessageQueueError    ErrorCode = 700005 // 消息队列错误

	// 83xxxx: 战斗业务错误码
	CodeSessionNotFound      ErrorCode = 830001 // 战斗会话不存在或已过期
	CodeSessionNotOngoing    ErrorCode = 830002 // 战斗会话已结束
	CodeSessionNotTerminal   ErrorCode = 830003 // 战斗尚未分出胜负
	CodeEnemyPoolEmpty       ErrorCode = 830004 // 敌人池为空
	CodeSettlementInProgress ErrorCode = 830005 // 结算进行中
	CodeInsufficientGold     ErrorCode = 830006 // 金币不足
	CodeInvalidTapDegrees    ErrorCode = 830007 // 转盘角度无效
	CodeInvalidAccuracy      ErrorCode = 830008 // 命中率取值无效
	CodeUnknownHitZone       ErrorCode = 830009 // 未知的命中区域
	CodeLocationNotFound     ErrorCode = 830010 // 地点不存在
	CodeSettlementFailed     ErrorCode = 830011 // 奖励结算失败
)

// -----------------------------------------------------------------------------
// HTTP 状态码常量定义
// -----------------------------------------------------------------------------
const (
	HTTPStatusOK        = 200 // 请求成功
	HTTPStatusCreated   = 201 // 资源已创建
	HTTPStatusNoContent = 204 // 请求成功但无内容返回

	HTTPStatusBadRequest      = 400 // 错误请求
	HTTPStatusUnauthorized    = 401 // 未经授权
	HTTPStatusForbidden       = 403 // 禁止访问
	HTTPStatusNotFound        = 404 // 资源未找到
	HTTPStatusConflict        = 409 // 资源冲突
	HTTPStatusTooManyRequests = 429 // 请求过多

	HTTPStatusInternalServerError = 500 // 内部服务器错误
	HTTPStatusServiceUnavailable  = 503 // 服务不可用
)

// -----------------------------------------------------------------------------
// 错误消息映射
// -----------------------------------------------------------------------------
var codeMessages = map[ErrorCode]string{
	CodeSuccess:           "操作成功",
	CodeInternalError:     "内部服务错误",
	CodeInvalidParams:     "参数错误",
	CodeInvalidRequest:    "请求格式错误",
	CodeResourceNotFound:  "资源不存在",
	CodeDuplicateResource: "资源已存在",
	CodeRateLimitExceeded: "请求频率限制",

	CodeBusinessLogicError:  "业务逻辑错误",
	CodeDataIntegrityError:  "数据完整性错误",
	CodeOperationNotAllowed: "操作不被允许",
	CodeResourceLocked:      "资源被锁定",

	CodeExternalServiceError: "外部服务错误",
	CodeDatabaseError:        "数据库错误",
	CodeCacheError:           "缓存服务错误",
	CodeMessageQueueError:    "消息队列错误",

	// 战斗业务错误消息
	CodeSessionNotFound:      "战斗会话不存在或已过期",
	CodeSessionNotOngoing:    "战斗会话已结束，无法继续操作",
	CodeSessionNotTerminal:   "战斗尚未分出胜负，无法结算",
	CodeEnemyPoolEmpty:       "该地点没有可用的敌人",
	CodeSettlementInProgress: "奖励结算进行中，请稍后重试",
	CodeInsufficientGold:     "金币不足",
	CodeInvalidTapDegrees:    "转盘角度必须在 [0, 360) 范围内",
	CodeInvalidAccuracy:      "命中率必须在 [0, 1] 范围内",
	CodeUnknownHitZone:       "未知的命中区域",
	CodeLocationNotFound:     "地点不存在",
	CodeSettlementFailed:     "奖励结算失败，请重试",
}

// GetHTTPStatus 根据业务错误码获取HTTP状态码
func GetHTTPStatus(code ErrorCode) int {
	switch {
	case code == CodeSuccess:
		return HTTPStatusOK
	case code == CodeResourceNotFound || code == CodeSessionNotFound || code == CodeLocationNotFound:
		return HTTPStatusNotFound
	case code == CodeDuplicateResource:
		return HTTPStatusConflict
	case code == CodeSessionNotOngoing || code == CodeSessionNotTerminal || code == CodeOperationNotAllowed:
		return HTTPStatusConflict
	case code == CodeSettlementInProgress || code == CodeResourceLocked:
		return HTTPStatusConflict
	case code == CodeInvalidParams || code == CodeInvalidRequest ||
		code == CodeInvalidTapDegrees || code == CodeInvalidAccuracy || code == CodeUnknownHitZone:
		return HTTPStatusBadRequest
	case code == CodeRateLimitExceeded:
		return HTTPStatusTooManyRequests
	case code == CodeInsufficientGold || code == CodeEnemyPoolEmpty:
		return HTTPStatusBadRequest
	case code >= 600000 && code < 700000:
		return HTTPStatusBadRequest
	case code >= 700000 && code < 800000:
		return HTTPStatusServiceUnavailable
	default:
		return HTTPStatusInternalServerError
	}
}

// 辅助函数
// getCategoryByCode 根据错误码获取分类
func getCategoryByCode(code ErrorCode) string {
	switch {
	case code >= 100000 && code < 200000:
		return "system"
	case code >= 600000 && code < 700000:
		return "business"
	case code >= 700000 && code < 800000:
		return "external"
	case code >= 830000 && code < 840000:
		return "combat"
	default:
		return "unknown"
	}
}

// getLevelByCode 根据错误码获取级别
func getLevelByCode(code ErrorCode) ErrorLevel {
	switch {
	case code == CodeSuccess:
		return LevelInfo
	case code >= 100001 && code <= 100003: // 参数错误等
		return LevelWarn
	case code >= 700001 && code < 800000: // 外部服务错误
		return LevelCritical
	default:
		return LevelError
	}
}

// isRetryableByCode 根据错误码判断是否可重试
func isRetryableByCode(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		CodeInternalError:        true,
		CodeExternalServiceError: true,
		CodeDatabaseError:        true,
		CodeCacheError:           true,
		CodeMessageQueueError:    true,
		CodeRateLimitExceeded:    true,
		CodeSettlementInProgress: true,
		CodeSettlementFailed:     true,
	}
	return retryableCodes[code]
}
