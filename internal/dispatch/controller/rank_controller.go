package controller

import (
	"context"
	"strconv"

	"judgehub/internal/dispatch/auth"
	"judgehub/internal/dispatch/model"
	"judgehub/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

type RankService interface {
	ContestRank(ctx context.Context, contestID int64, forceRefresh, admin bool) (*model.RankSnapshot, error)
}

// RankController serves contest standings.
type RankController struct {
	svc RankService
}

func NewRankController(svc RankService) *RankController {
	return &RankController{svc: svc}
}

// GetRank returns a contest's standings. Admins always read fresh data.
func (h *RankController) GetRank(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || contestID <= 0 {
		response.BadRequest(c, "Invalid contest id")
		return
	}
	user, _ := auth.UserFromContext(c)
	snapshot, err := h.svc.ContestRank(c.Request.Context(), contestID, queryFlag(c, "force_refresh"), user.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snapshot)
}
