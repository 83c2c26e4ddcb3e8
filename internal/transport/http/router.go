package http

import (
	"net/http"

	"quiz-attempt-service/internal/app"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig wires the engine services into the HTTP surface.
type RouterConfig struct {
	Attempts     *app.AttemptService
	Wallets      *app.WalletService
	Auth         Authenticator
	AllowOrigins []string
}

// NewRouter builds the gin engine: REST under /api/v1 behind bearer auth, plus /ws and /healthz.
func NewRouter(cfg RouterConfig) *gin.Engine {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	ws := NewWSHandler(cfg.Attempts, cfg.Auth)
	r.GET("/ws", gin.WrapF(ws.ServeWS))

	h := NewHandler(cfg.Attempts, cfg.Wallets)
	api := r.Group("/api/v1", bearerAuth(cfg.Auth))
	{
		quizzes := api.Group("/quizzes/:quizId")
		quizzes.POST("/start", h.start)
		quizzes.POST("/answer", h.answer)
		quizzes.GET("/next", h.next)
		quizzes.POST("/complete", h.complete)
		quizzes.GET("/result", h.result)

		api.GET("/wallet", h.wallet)

		admin := api.Group("/admin", requireAdmin())
		admin.POST("/wallets/:userId/credit", h.credit)
	}
	return r
}
