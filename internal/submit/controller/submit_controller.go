package controller

import (
	"codequest/internal/submit/service"
	"codequest/pkg/utils/contextkey"
	"codequest/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmitController handles submission HTTP endpoints.
type SubmitController struct {
	submitService *service.SubmitService
}

// NewSubmitController creates a new SubmitController.
func NewSubmitController(submitService *service.SubmitService) *SubmitController {
	return &SubmitController{submitService: submitService}
}

// RegisterRoutes mounts the submission routes behind auth.
func (h *SubmitController) RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc) {
	api.POST("/submissions/:problem_id/submit", auth, h.Submit)
	api.POST("/submissions/:problem_id/run", auth, h.Run)
	api.GET("/problems/:id/submissions", auth, h.ListForProblem)
	api.GET("/problems/:id/submissions/:submission_id", auth, h.GetSource)
}

// Submit grades code against the hidden test cases.
func (h *SubmitController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.submitService.Submit(c.Request.Context(), service.SubmitInput{
		UserID:    c.GetString(contextkey.GinUserID),
		ProblemID: c.Param("problem_id"),
		Code:      req.Code,
		Language:  req.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Run grades code against the visible test cases.
func (h *SubmitController) Run(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.submitService.Run(c.Request.Context(), service.RunInput{
		UserID:    c.GetString(contextkey.GinUserID),
		ProblemID: c.Param("problem_id"),
		Code:      req.Code,
		Language:  req.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListForProblem returns the caller's submissions for a problem.
func (h *SubmitController) ListForProblem(c *gin.Context) {
	submissions, err := h.submitService.ListForProblem(c.Request.Context(), c.GetString(contextkey.GinUserID), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(submissions) == 0 {
		response.SuccessWithMessage(c, "No submissions yet", submissions)
		return
	}
	response.Success(c, submissions)
}

// GetSource returns one of the caller's submissions with its code.
func (h *SubmitController) GetSource(c *gin.Context) {
	submission, err := h.submitService.GetSource(c.Request.Context(), c.GetString(contextkey.GinUserID), c.Param("id"), c.Param("submission_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// SubmitRequest defines the submit and run payload.
type SubmitRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}
