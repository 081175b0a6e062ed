package handler

import (
	"github.com/labstack/echo/v4"

	"tsu-combat/internal/modules/combat/service"
	"tsu-combat/internal/pkg/ctxkey"
	"tsu-combat/internal/pkg/response"
)

// CombatHandler 战斗会话的 HTTP 入口
type CombatHandler struct {
	sessions   *service.SessionService
	respWriter response.Writer
}

// NewCombatHandler 构造函数
func NewCombatHandler(sessions *service.SessionService, respWriter response.Writer) *CombatHandler {
	return &CombatHandler{
		sessions:   sessions,
		respWriter: respWriter,
	}
}

// StartCombatRequest 开战请求
type StartCombatRequest struct {
	UserID     string `json:"user_id" validate:"required" example:"user-uuid-001"`         // 玩家ID（必填）
	LocationID string `json:"location_id" validate:"required,location_code" example:"loc-shadow-forest"` // 地点ID（必填）
}

// TapRequest 攻击/防御请求，携带转盘点击位置
type TapRequest struct {
	TapDegrees float64 `json:"tap_degrees" validate:"min=0,lt=360" example:"137.5"` // 点击度数 [0,360)
}

// StartCombat 创建战斗会话
// POST /api/v1/combat/sessions
func (h *CombatHandler) StartCombat(c echo.Context) error {
	var req StartCombatRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.UserID, req.UserID)
	summary, err := h.sessions.StartCombat(ctx, req.UserID, req.LocationID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, summary)
}

// SubmitAttack 玩家攻击回合
// POST /api/v1/combat/sessions/:session_id/attack
func (h *CombatHandler) SubmitAttack(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "session_id 不能为空")
	}

	var req TapRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.CombatSessionID, sessionID)
	result, err := h.sessions.SubmitAttack(ctx, sessionID, req.TapDegrees)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, result)
}

// SubmitDefend 玩家防御回合
// POST /api/v1/combat/sessions/:session_id/defend
func (h *CombatHandler) SubmitDefend(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "session_id 不能为空")
	}

	var req TapRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.CombatSessionID, sessionID)
	result, err := h.sessions.SubmitDefend(ctx, sessionID, req.TapDegrees)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, result)
}

// CompleteCombat 结算终局会话（幂等）
// POST /api/v1/combat/sessions/:session_id/complete
func (h *CombatHandler) CompleteCombat(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "session_id 不能为空")
	}

	ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.CombatSessionID, sessionID)
	result, err := h.sessions.CompleteCombat(ctx, sessionID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, result)
}

// AbandonCombat 放弃战斗
// DELETE /api/v1/combat/sessions/:session_id
func (h *CombatHandler) AbandonCombat(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "session_id 不能为空")
	}

	ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.CombatSessionID, sessionID)
	if err := h.sessions.AbandonCombat(ctx, sessionID); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, map[string]interface{}{"message": "战斗已放弃"})
}

// GetSession 查询会话状态
// GET /api/v1/combat/sessions/:session_id
func (h *CombatHandler) GetSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "session_id 不能为空")
	}

	summary, err := h.sessions.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, summary)
}
