package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Follow_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthorHandler struct {
	svc *service.AuthorFollowService
}

func NewAuthorHandler(svc *service.AuthorFollowService) *AuthorHandler {
	return &AuthorHandler{svc: svc}
}

type authorFollowReq struct {
	AuthorID  uint64   `json:"author_id" binding:"required"`
	Action    string   `json:"action" binding:"required,oneof=follow unfollow"`
	PostTypes []string `json:"post_types"` // 空表示全部启用的 post_type
}

// Follow 关注/取关作者
func (h *AuthorHandler) Follow(c *gin.Context) {
	var req authorFollowReq
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
		changed, err = h.svc.FollowAuthor(c.Request.Context(), req.AuthorID, uid, req.PostTypes)
	} else {
		changed, err = h.svc.UnfollowAuthor(c.Request.Context(), req.AuthorID, uid, req.PostTypes)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrAuthorNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrUnknownPostType) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// Following 登录用户关注的作者列表
func (h *AuthorHandler) Following(c *gin.Context) {
	postType := c.DefaultQuery("post_type", "post")
	page, perPage := pageParams(c)
	ids, err := h.svc.GetFollowedAuthors(c.Request.Context(), userIDFromCtx(c), postType, page, perPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}

// Followers 某作者的粉丝列表
func (h *AuthorHandler) Followers(c *gin.Context) {
	authorID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	postType := c.DefaultQuery("post_type", "post")
	page, perPage := pageParams(c)
	ids, err := h.svc.GetAuthorFollowers(c.Request.Context(), authorID, postType, page, perPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}

// FollowerCount 某作者的粉丝数
func (h *AuthorHandler) FollowerCount(c *gin.Context) {
	authorID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	postType := c.DefaultQuery("post_type", "post")
	n, err := h.svc.GetAuthorFollowerCount(c.Request.Context(), authorID, postType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Relation 登录用户是否关注某作者
func (h *AuthorHandler) Relation(c *gin.Context) {
	authorID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	postType := c.DefaultQuery("post_type", "post")
	ok, err := h.svc.IsFollowingAuthor(c.Request.Context(), authorID, userIDFromCtx(c), postType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}
