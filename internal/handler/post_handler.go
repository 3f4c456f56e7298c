package handler

import (
	"net/http"
	"strconv"

	"Follow_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	content *service.ContentService
	notify  *service.NotifyService
}

func NewPostHandler(content *service.ContentService, notify *service.NotifyService) *PostHandler {
	return &PostHandler{content: content, notify: notify}
}

type createPostReq struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content"`
	PostType string   `json:"post_type"`
	TermIDs  []uint64 `json:"term_ids"`
}

// Create 新建草稿
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	post, err := h.content.CreatePost(c.Request.Context(), userIDFromCtx(c), req.PostType, req.Title, req.Content, req.TermIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, post)
}

// Publish 草稿转发布并触发通知扇出
func (h *PostHandler) Publish(c *gin.Context) {
	postID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	changed, err := h.notify.PublishPost(c.Request.Context(), postID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": changed})
}

// Get 查询帖子
func (h *PostHandler) Get(c *gin.Context) {
	postID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	post, err := h.content.GetPost(c.Request.Context(), postID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"msg": "post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

type createTermReq struct {
	Taxonomy string `json:"taxonomy" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug" binding:"required"`
}

// CreateTerm 新建词条
func (h *PostHandler) CreateTerm(c *gin.Context) {
	var req createTermReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	term, err := h.content.CreateTerm(c.Request.Context(), req.Taxonomy, req.Name, req.Slug)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, term)
}

type digestPrefReq struct {
	PostType   string `json:"post_type" binding:"required"`
	DigestMode string `json:"digest_mode" binding:"required"`
}

// SetDigestPref 用户选择某 post_type 的摘要模式
func (h *PostHandler) SetDigestPref(c *gin.Context) {
	var req digestPrefReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.content.SetDigestPreference(c.Request.Context(), userIDFromCtx(c), req.PostType, req.DigestMode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// GetDigestPref 用户生效的摘要模式
func (h *PostHandler) GetDigestPref(c *gin.Context) {
	postType := c.DefaultQuery("post_type", "post")
	mode, err := h.content.GetDigestPreference(c.Request.Context(), userIDFromCtx(c), postType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_type": postType, "digest_mode": mode})
}
