// Package http wires the REST + WebSocket surface around the hub.
package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/adapters"
	"github.com/studyhub-app/studyhub/internal/adapters/auth"
	"github.com/studyhub-app/studyhub/internal/ai"
	"github.com/studyhub-app/studyhub/internal/app"
	"github.com/studyhub-app/studyhub/internal/config"
	"github.com/studyhub-app/studyhub/internal/storage"
)

const sessionUserKey = "user_id"

// API bundles the collaborators the REST handlers reach for.
type API struct {
	Hub       *app.Hub
	Store     storage.Store
	Tokens    *auth.JWT
	Summarize ai.Summarizer
}

func SetupRouter(ctx context.Context, cfg *config.Config, api *API) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("StudyHubSession", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ws := &adapters.WSController{Hub: api.Hub, ReadLimit: cfg.ReadLimit, SendBuf: cfg.SendBuffer, PingPeriod: cfg.PingPeriod}
	r.GET("/ws", func(c *gin.Context) {
		ws.Handle(ctx, c)
	})

	pub := r.Group("/api/auth")
	pub.POST("/register", api.register)
	pub.POST("/login", api.login)
	pub.POST("/logout", api.logout)

	priv := r.Group("/api")
	priv.Use(requireLogin())

	priv.GET("/rooms", func(c *gin.Context) {
		c.JSON(200, gin.H{"rooms": api.Hub.Rooms().List()})
	})
	priv.GET("/presence", func(c *gin.Context) {
		c.JSON(200, gin.H{"users": api.Hub.Presence().ListOnline()})
	})

	priv.GET("/notes", api.listNotes)
	priv.POST("/notes", api.createNote)
	priv.PUT("/notes/:id", api.updateNote)
	priv.DELETE("/notes/:id", api.deleteNote)

	priv.GET("/flashcards", api.listFlashcards)
	priv.POST("/flashcards", api.createFlashcard)
	priv.DELETE("/flashcards/:id", api.deleteFlashcard)

	priv.GET("/homework", api.listHomework)
	priv.POST("/homework", api.createHomework)
	priv.POST("/homework/:id/summary", api.summarizeHomework)

	priv.POST("/quizzes", api.saveQuiz)
	priv.GET("/quizzes/:id", api.getQuiz)

	return r
}

// requireLogin gates the private API on the session cookie set at login.
func requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		uid, _ := s.Get(sessionUserKey).(string)
		if uid == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "login required"})
			return
		}
		c.Set("user_id", uid)
		c.Next()
	}
}
