/**
 * 扫描历史处理器
 * @description: 保存/查询/删除某个用户的端口扫描历史
 */
package history

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neoport/internal/core/model"
	historyStore "neoport/internal/history"
	"neoport/internal/pkg/logger"
)

// HistoryHandler 扫描历史处理器接口
type HistoryHandler interface {
	Save(c *gin.Context)       // POST /portHistory/save
	ListByUser(c *gin.Context) // GET /portHistory/all/:userId
	Delete(c *gin.Context)     // DELETE /portHistory/delete/:id
}

type historyHandler struct {
	store historyStore.Store
	limit int
}

// NewHistoryHandler 创建扫描历史处理器，limit 非正数时使用默认值
func NewHistoryHandler(store historyStore.Store, limit int) HistoryHandler {
	if limit <= 0 {
		limit = historyStore.DefaultLimit
	}
	return &historyHandler{store: store, limit: limit}
}

// summary 前端以嵌套对象提交的统计信息
type summary struct {
	TotalPorts      int    `json:"totalPorts"`
	OpenPorts       int    `json:"openPorts"`
	ClosedPorts     int    `json:"closedPorts"`
	ScanTimeSeconds string `json:"scanTimeSeconds"`
}

// saveRequest 保存请求，统计字段可以平铺也可以放在 summary 中
type saveRequest struct {
	UserID          string              `json:"userId"`
	Target          string              `json:"target"`
	ScanType        model.ScanType      `json:"scanType"`
	TotalPorts      int                 `json:"totalPorts"`
	OpenPorts       int                 `json:"openPorts"`
	ClosedPorts     int                 `json:"closedPorts"`
	ScanTimeSeconds string              `json:"scanTimeSeconds"`
	Summary         *summary            `json:"summary"`
	Results         []model.ProbeResult `json:"results"`
}

func (r *saveRequest) toRecord() *historyStore.Record {
	rec := &historyStore.Record{
		UserID:          r.UserID,
		Target:          r.Target,
		ScanType:        r.ScanType,
		TotalPorts:      r.TotalPorts,
		OpenPorts:       r.OpenPorts,
		ClosedPorts:     r.ClosedPorts,
		ScanTimeSeconds: r.ScanTimeSeconds,
		Results:         r.Results,
	}
	if s := r.Summary; s != nil {
		rec.TotalPorts = s.TotalPorts
		rec.OpenPorts = s.OpenPorts
		rec.ClosedPorts = s.ClosedPorts
		rec.ScanTimeSeconds = s.ScanTimeSeconds
	}
	return rec
}

func (h *historyHandler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	id, err := h.store.Save(c.Request.Context(), req.toRecord())
	if err != nil {
		if model.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Port history saved!",
		"id":      id,
	})
}

func (h *historyHandler) ListByUser(c *gin.Context) {
	records, err := h.store.ListByUser(c.Request.Context(), c.Param("userId"), h.limit)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *historyHandler) Delete(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, historyStore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "History record not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Deleted successfully!",
	})
}

func (h *historyHandler) internalError(c *gin.Context, err error) {
	logger.LogError(err, c.GetString("request_id"), c.Request.URL.Path, c.Request.Method, nil)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
