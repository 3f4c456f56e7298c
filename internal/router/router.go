package router

import (
	"Follow_Community/internal/handler"
	"Follow_Community/internal/middleware"
	"Follow_Community/internal/repository/redis"

	"github.com/gin-gonic/gin"
)

// Handlers 路由需要的全部 handler，main 里构造一次传进来
type Handlers struct {
	User   *handler.UserHandler
	Follow *handler.FollowHandler
	Author *handler.AuthorHandler
	Term   *handler.TermHandler
	Post   *handler.PostHandler
}

func InitRouter(h Handlers, userRep *redis.UserRepository) *gin.Engine {
	r := gin.Default()
	auth := middleware.AuthMiddleware(userRep)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", h.User.Register)
		userGroup.POST("/login", h.User.Login)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", h.User.Refresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(auth)
	{
		authGroup.POST("/logout", h.User.Logout)
		authGroup.POST("/change-password", h.User.ChangePassword)
		authGroup.GET("/me", h.User.Me)
		authGroup.PUT("/settings", h.User.UpdateSettings)
	}

	// 用户关注相关接口
	followGroup := r.Group("/api/follow")
	followGroup.Use(auth)
	{
		followGroup.POST("/", h.Follow.Follow)
		followGroup.GET("/followers", h.Follow.ListFollowers)
		followGroup.GET("/following", h.Follow.ListFollowing)
		followGroup.GET("/relation", h.Follow.Relation)
		followGroup.GET("/counts", h.Follow.Counts)
	}

	// 作者关注相关接口
	authorGroup := r.Group("/api/authors")
	authorGroup.Use(auth)
	{
		authorGroup.POST("/follow", h.Author.Follow)
		authorGroup.GET("/following", h.Author.Following)
		authorGroup.GET("/:id/followers", h.Author.Followers)
		authorGroup.GET("/:id/follower-count", h.Author.FollowerCount)
		authorGroup.GET("/:id/relation", h.Author.Relation)
	}

	// 词条关注相关接口
	termGroup := r.Group("/api/terms")
	termGroup.Use(auth)
	{
		termGroup.POST("/follow", h.Term.Follow)
		termGroup.GET("/following", h.Term.Following)
		termGroup.GET("/:id/followers", h.Term.Followers)
		termGroup.GET("/:id/follower-count", h.Term.FollowerCount)
	}

	// 帖子相关接口
	postGroup := r.Group("/api/post")
	postGroup.Use(auth)
	{
		postGroup.POST("/create", h.Post.Create)
		postGroup.POST("/:id/publish", h.Post.Publish)
		postGroup.GET("/:id", h.Post.Get)
		postGroup.POST("/terms", h.Post.CreateTerm)
		postGroup.GET("/digest-pref", h.Post.GetDigestPref)
		postGroup.PUT("/digest-pref", h.Post.SetDigestPref)
	}

	return r
}
