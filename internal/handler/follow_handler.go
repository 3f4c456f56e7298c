package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Follow_Community/internal/model"
	"Follow_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	svc *service.FollowService
}

func NewFollowHandler(svc *service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

type followReq struct {
	LeaderID uint64 `json:"leader_id" binding:"required"`
	Action   string `json:"action" binding:"required,oneof=follow unfollow"`
}

// Follow 用户关注/取关接口，登录用户是 follower
func (h *FollowHandler) Follow(c *gin.Context) {
	var req followReq
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
		changed, err = h.svc.Follow(c.Request.Context(), req.LeaderID, uid, model.SocialFollow())
	} else {
		changed, err = h.svc.Unfollow(c.Request.Context(), req.LeaderID, uid, model.SocialFollow())
	}
	if err != nil {
		if errors.Is(err, service.ErrSelfFollow) || errors.Is(err, service.ErrInvalidID) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// ListFollowers 获取粉丝列表
func (h *FollowHandler) ListFollowers(c *gin.Context) {
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	page, perPage := pageParams(c)
	ids, err := h.svc.GetFollowers(c.Request.Context(), userID, model.SocialFollow(), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}

// ListFollowing 获取关注列表
func (h *FollowHandler) ListFollowing(c *gin.Context) {
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	page, perPage := pageParams(c)
	ids, err := h.svc.GetFollowing(c.Request.Context(), userID, model.SocialFollow(), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}

// Relation 获取用户间关系：follower 是否关注了 leader
func (h *FollowHandler) Relation(c *gin.Context) {
	leader, _ := strconv.ParseUint(c.Query("leader_id"), 10, 64)
	follower, _ := strconv.ParseUint(c.Query("follower_id"), 10, 64)
	ok, err := h.svc.IsFollowing(c.Request.Context(), leader, follower, model.SocialFollow())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}

// Counts 获取用户的粉丝数/关注数
func (h *FollowHandler) Counts(c *gin.Context) {
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	counts, err := h.svc.GetCounts(c.Request.Context(), userID, model.SocialFollow())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get("user_id"); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return page, perPage
}
