package router

// registerPortRoutes 端口扫描路由
func (r *Router) registerPortRoutes() {
	port := r.engine.Group("/port")
	port.POST("/scan", r.portHandler.Scan)
}

// registerHistoryRoutes 扫描历史路由
func (r *Router) registerHistoryRoutes() {
	hist := r.engine.Group("/portHistory")
	hist.POST("/save", r.historyHandler.Save)
	hist.GET("/all/:userId", r.historyHandler.ListByUser)
	hist.DELETE("/delete/:id", r.historyHandler.Delete)
}
