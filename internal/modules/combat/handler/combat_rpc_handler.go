package handler

import (
	"context"
	"encoding/json"

	"tsu-combat/internal/modules/combat/service"
	"tsu-combat/internal/pkg/xerrors"
)

// CombatRPCHandler 供其他模块（如 Admin Server）调用的战斗管理接口
type CombatRPCHandler struct {
	sessions *service.SessionService
}

// NewCombatRPCHandler 创建战斗 RPC Handler
func NewCombatRPCHandler(sessions *service.SessionService) *CombatRPCHandler {
	return &CombatRPCHandler{sessions: sessions}
}

// ==================== RPC Methods ====================

// GetActiveSessionCount 获取当前存活会话数
func (h *CombatRPCHandler) GetActiveSessionCount(data []byte) ([]byte, error) {
	count, err := h.sessions.GetActiveSessionCount(context.Background())
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "统计存活会话失败")
	}
	return json.Marshal(map[string]interface{}{"count": count})
}

type forceExpireRequest struct {
	SessionID string `json:"session_id"`
}

// ForceExpireSession 强制过期指定会话
func (h *CombatRPCHandler) ForceExpireSession(data []byte) ([]byte, error) {
	var req forceExpireRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, xerrors.NewValidationError("request", "请求数据不是合法的JSON")
	}
	if req.SessionID == "" {
		return nil, xerrors.NewValidationError("session_id", "session_id 不能为空")
	}

	if err := h.sessions.ForceExpireSession(context.Background(), req.SessionID); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{"expired": true, "session_id": req.SessionID})
}
