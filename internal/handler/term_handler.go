package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Follow_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type TermHandler struct {
	svc *service.TermFollowService
}

func NewTermHandler(svc *service.TermFollowService) *TermHandler {
	return &TermHandler{svc: svc}
}

type termFollowReq struct {
	TermID   uint64 `json:"term_id" binding:"required"`
	Taxonomy string `json:"taxonomy" binding:"required"`
	Action   string `json:"action" binding:"required,oneof=follow unfollow"`
}

// Follow 关注/取关词条
func (h *TermHandler) Follow(c *gin.Context) {
	var req termFollowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	var (
		changed bool
		err     error
	)
	if req.Action == "follow" {
		changed, err = h.svc.FollowTerm(c.Request.Context(), req.TermID, uid, req.Taxonomy)
	} else {
		changed, err = h.svc.UnfollowTerm(c.Request.Context(), req.TermID, uid, req.Taxonomy)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrTermNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrTaxonomyDisabled) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// Following 登录用户关注的词条列表
func (h *TermHandler) Following(c *gin.Context) {
	taxonomy := c.DefaultQuery("taxonomy", "category")
	page, perPage := pageParams(c)
	ids, err := h.svc.GetFollowedTerms(c.Request.Context(), userIDFromCtx(c), taxonomy, page, perPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}

// Followers 某词条的粉丝列表
func (h *TermHandler) Followers(c *gin.Context) {
	termID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	taxonomy := c.DefaultQuery("taxonomy", "category")
	page, perPage := pageParams(c)
	ids, err := h.svc.GetTermFollowers(c.Request.Context(), termID, taxonomy, page, perPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}

// FollowerCount 某词条的粉丝数
func (h *TermHandler) FollowerCount(c *gin.Context) {
	termID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	taxonomy := c.DefaultQuery("taxonomy", "category")
	n, err := h.svc.GetTermFollowerCount(c.Request.Context(), termID, taxonomy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
