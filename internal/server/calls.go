package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	calllogdomain "github.com/voxlane/voxlane/internal/calllog/domain"
)

func (s *Server) ListCalls(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.callSvc.List(c.Request.Context(), calllogdomain.ListRequest{
		AccountID:   account.ID,
		AssistantID: strings.TrimSpace(c.Query("assistant_id")),
		PageToken:   strings.TrimSpace(c.Query("page_token")),
		PageSize:    queryPageSize(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) RecordCall(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req calllogdomain.RecordCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_payload", err.Error()))
		return
	}
	req.AccountID = account.ID
	req.Plan = account.Plan

	resp, err := s.callSvc.RecordCompleted(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) CallAnalytics(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.callSvc.Analytics(c.Request.Context(), account.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, view)
}

func queryPageSize(c *gin.Context) int32 {
	raw := strings.TrimSpace(c.Query("page_size"))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || parsed < 0 {
		return 0
	}
	if parsed > 250 {
		parsed = 250
	}
	return int32(parsed)
}
