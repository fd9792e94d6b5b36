package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/bassista/template_preload/internal/cache"
	"github.com/bassista/template_preload/internal/logger"
	"github.com/bassista/template_preload/internal/repository"
)

// ErrorResponse is the error body of the templates API.
type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// missingFieldMessages mirrors the messages of the real templates service.
var missingFieldMessages = map[string]string{
	"TemplateID":    "template id missing",
	"Model":         "model missing",
	"XPathTemplate": "template missing",
	"RequestType":   "request type missing",
}

// TemplateController serves the /templates resource.
type TemplateController struct {
	store cache.TemplateStore
}

func NewTemplateController(store cache.TemplateStore) *TemplateController {
	return &TemplateController{store: store}
}

// Create handles POST /templates.
func (tc *TemplateController) Create(c *gin.Context) {
	var req repository.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation Failed", Details: validationDetails(err)})
		return
	}
	req.ApplyDefaults()

	saved, err := tc.store.Add(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to store template", Details: []string{err.Error()}})
		return
	}
	logger.WithComponent("stub").Infof("template %s stored", saved.TemplateID)
	c.JSON(http.StatusCreated, saved)
}

// GetAll handles GET /templates. An empty repository is a 404, as in the real service.
func (tc *TemplateController) GetAll(c *gin.Context) {
	templates, err := tc.store.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to read templates", Details: []string{err.Error()}})
		return
	}
	if len(templates) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Template Not found", Details: []string{"Template repository is empty"}})
		return
	}
	c.JSON(http.StatusOK, templates)
}

// Get handles GET /templates/:templateId.
func (tc *TemplateController) Get(c *gin.Context) {
	t, err := tc.store.Get(c.Param("templateId"))
	if err != nil {
		tc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /templates/:templateId.
func (tc *TemplateController) Delete(c *gin.Context) {
	if err := tc.store.Remove(c.Param("templateId")); err != nil {
		tc.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (tc *TemplateController) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, cache.ErrTemplateNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Template Not found", Details: []string{err.Error()}})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "template store error", Details: []string{err.Error()}})
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"invalid payload"}
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := missingFieldMessages[fe.StructField()]; ok && fe.Tag() == "required" {
			details = append(details, msg)
			continue
		}
		details = append(details, fe.Error())
	}
	return details
}
