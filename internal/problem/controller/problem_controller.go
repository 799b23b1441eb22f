package controller

import (
	"codequest/internal/problem/model"
	"codequest/internal/problem/service"
	"codequest/pkg/utils/contextkey"
	"codequest/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// RegisterRoutes mounts the problem routes. admin guards authoring routes; auth guards reads.
func (h *ProblemController) RegisterRoutes(api *gin.RouterGroup, auth, admin gin.HandlerFunc) {
	problems := api.Group("/problems")
	problems.GET("", auth, h.List)
	problems.GET("/:id", auth, h.Get)
	problems.GET("/:id/full", auth, admin, h.GetAdmin)
	problems.POST("", auth, admin, h.Create)
	problems.POST("/validate", auth, admin, h.Validate)
	problems.PUT("/:id", auth, admin, h.Update)
	problems.DELETE("/:id", auth, admin, h.Delete)
}

// Create handles problem creation.
func (h *ProblemController) Create(c *gin.Context) {
	var req ProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.problemService.Create(c.Request.Context(), c.GetString(contextkey.GinUserID), req.toDraft())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, problem)
}

// Validate runs the checks of Create without storing anything.
func (h *ProblemController) Validate(c *gin.Context) {
	var req ProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if err := h.problemService.Validate(c.Request.Context(), req.toDraft()); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Problem is valid", nil)
}

// Update handles problem replacement.
func (h *ProblemController) Update(c *gin.Context) {
	var req ProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.problemService.Update(c.Request.Context(), c.Param("id"), req.toDraft())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problem)
}

// Delete handles problem deletion.
func (h *ProblemController) Delete(c *gin.Context) {
	if err := h.problemService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Delete success", nil)
}

// Get returns a problem without hidden test cases.
func (h *ProblemController) Get(c *gin.Context) {
	problem, err := h.problemService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problem)
}

// GetAdmin returns the full problem document.
func (h *ProblemController) GetAdmin(c *gin.Context) {
	problem, err := h.problemService.GetAdmin(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problem)
}

// List returns problem summaries.
func (h *ProblemController) List(c *gin.Context) {
	problems, err := h.problemService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problems)
}

// ProblemRequest is the create/update/validate payload.
type ProblemRequest struct {
	Title             string                     `json:"title"`
	Description       string                     `json:"description"`
	Difficulty        model.Difficulty           `json:"difficulty"`
	Tags              model.Tag                  `json:"tags"`
	VisibleTestCases  []model.VisibleTestCase    `json:"visibleTestCases"`
	HiddenTestCases   []model.HiddenTestCase     `json:"hiddenTestCases"`
	StartCode         []StartCodeRequest         `json:"startCode"`
	ReferenceSolution []ReferenceSolutionRequest `json:"referenceSolution"`
}

// StartCodeRequest is one editor template.
type StartCodeRequest struct {
	Language    string `json:"language"`
	InitialCode string `json:"initialCode"`
}

// ReferenceSolutionRequest is one author solution.
type ReferenceSolutionRequest struct {
	Language     string `json:"language"`
	CompleteCode string `json:"completeCode"`
}

func (r ProblemRequest) toDraft() service.Draft {
	start := make([]model.StartCode, len(r.StartCode))
	for i, sc := range r.StartCode {
		start[i] = model.StartCode{Language: sc.Language, InitialCode: sc.InitialCode}
	}
	refs := make([]model.ReferenceSolution, len(r.ReferenceSolution))
	for i, ref := range r.ReferenceSolution {
		refs[i] = model.ReferenceSolution{Language: ref.Language, CompleteCode: ref.CompleteCode}
	}
	return service.Draft{
		Title:             r.Title,
		Description:       r.Description,
		Difficulty:        r.Difficulty,
		Tag:               r.Tags,
		VisibleTestCases:  r.VisibleTestCases,
		HiddenTestCases:   r.HiddenTestCases,
		StartCode:         start,
		ReferenceSolution: refs,
	}
}
