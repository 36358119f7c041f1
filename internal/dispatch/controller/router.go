// Package controller exposes the dispatcher over HTTP.
package controller

import (
	"net/http"
	"strconv"

	"judgehub/internal/dispatch/auth"

	"github.com/gin-gonic/gin"
)

// Routes bundles the handlers and credentials needed to register the API.
type Routes struct {
	Dispatch      *DispatchController
	Admin         *AdminController
	Rank          *RankController
	Authenticator *auth.Authenticator
	// JudgeToken is the shared secret judge servers present on heartbeat.
	JudgeToken string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Register mounts every route on router.
func (r Routes) Register(router gin.IRouter) {
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if r.Metrics != nil {
		router.GET("/metrics", gin.WrapH(r.Metrics))
	}

	api := router.Group("/api/v1")
	api.POST("/judge_server_heartbeat", auth.JudgeServer(r.JudgeToken), r.Dispatch.Heartbeat)
	api.POST("/dispatch", r.Dispatch.Dispatch)
	api.GET("/submissions/:id/status", r.Dispatch.GetStatus)
	api.GET("/contests/:id/rank", auth.Optional(r.Authenticator), r.Rank.GetRank)

	admin := api.Group("/admin", auth.RequireRoles(r.Authenticator, auth.RoleAdmin, auth.RoleSuperAdmin))
	admin.GET("/judge_servers", r.Admin.ListServers)
	admin.PUT("/judge_servers", r.Admin.UpdateServer)
	admin.DELETE("/judge_servers", auth.RequireRoles(r.Authenticator, auth.RoleSuperAdmin), r.Admin.RemoveServer)
	admin.POST("/submissions/:id/rejudge", r.Admin.Rejudge)
	admin.POST("/problems/:id/compile_spj", r.Admin.CompileSPJ)
}

// queryFlag accepts 1, true and the other strconv.ParseBool spellings.
func queryFlag(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
