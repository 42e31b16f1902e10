package server

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
)

func (s *Server) ListAssistants(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	assistants, err := s.assistantSvc.List(c.Request.Context(), account.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, assistants)
}

func (s *Server) CreateAssistant(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req assistantdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_payload", err.Error()))
		return
	}
	req.AccountID = account.ID
	req.Plan = account.Plan

	created, err := s.assistantSvc.Create(c.Request.Context(), req)
	if err != nil {
		// At the cap the product sends a plain success with no data;
		// demo users discover limits by hitting them.
		if errors.Is(err, assistantdomain.ErrLimitReached) {
			respondEmptySuccess(c)
			return
		}
		AbortWithError(c, err)
		return
	}
	respondData(c, created)
}

func (s *Server) GetAssistant(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, assistantdomain.ErrNotFound)
		return
	}

	found, err := s.assistantSvc.GetByID(c.Request.Context(), account.ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, found)
}

func (s *Server) UpdateAssistant(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, assistantdomain.ErrNotFound)
		return
	}

	var req assistantdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_payload", err.Error()))
		return
	}
	req.AccountID = account.ID
	req.ID = id

	updated, err := s.assistantSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, updated)
}

func (s *Server) DeleteAssistant(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, assistantdomain.ErrNotFound)
		return
	}

	if err := s.assistantSvc.Delete(c.Request.Context(), account.ID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	respondEmptySuccess(c)
}

func parseIDParam(c *gin.Context) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(c.Param("id")))
}
