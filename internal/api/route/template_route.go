package route

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/template_preload/internal/api/controller"
	"github.com/bassista/template_preload/internal/api/middleware"
	"github.com/bassista/template_preload/internal/cache"
)

// NewTemplateRouter sets up the /templates routes.
func NewTemplateRouter(timeout time.Duration, group *gin.RouterGroup, store cache.TemplateStore) {
	tc := controller.NewTemplateController(store)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	templates := group.Group("/templates", timeoutMiddleware)
	templates.POST("", tc.Create)
	templates.GET("", tc.GetAll)
	templates.GET("/:templateId", tc.Get)
	templates.DELETE("/:templateId", tc.Delete)
}
