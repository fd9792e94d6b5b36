package route

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/template_preload/internal/cache"
)

func SetupRoutes(r *gin.Engine, store cache.TemplateStore, timeout time.Duration) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	NewTemplateRouter(timeout, r.Group(""), store)
}
