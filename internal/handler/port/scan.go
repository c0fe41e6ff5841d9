/**
 * 端口扫描处理器
 * @description: POST /port/scan，将请求体转换为 ScanRequest 并同步执行一次扫描
 */
package port

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neoport/internal/core/model"
	"neoport/internal/pkg/logger"
)

// PortScanner 扫描执行者 (portscan.Scanner)
type PortScanner interface {
	Scan(ctx context.Context, req *model.ScanRequest) (*model.ScanResponse, error)
}

// PortHandler 端口扫描处理器接口
type PortHandler interface {
	Scan(c *gin.Context)
}

type portHandler struct {
	scanner PortScanner
}

// NewPortHandler 创建端口扫描处理器
func NewPortHandler(scanner PortScanner) PortHandler {
	return &portHandler{scanner: scanner}
}

// Scan 执行扫描
// 扫描不随客户端断开而取消，结果总是完整返回
func (h *portHandler) Scan(c *gin.Context) {
	var req model.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	resp, err := h.scanner.Scan(ctx, &req)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			logger.WithField("request_id", c.GetString("request_id")).Debugf("scan rejected: %s", verr.Message)
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}
		logger.LogError(err, c.GetString("request_id"), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
			"target":    req.Target,
			"scan_type": string(req.ScanType),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
