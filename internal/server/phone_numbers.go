package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	phonedomain "github.com/voxlane/voxlane/internal/phonenumber/domain"
)

func (s *Server) ListPhoneNumbers(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	numbers, err := s.phoneSvc.List(c.Request.Context(), account.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, numbers)
}

func (s *Server) CreatePhoneNumber(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req phonedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_payload", err.Error()))
		return
	}
	req.AccountID = account.ID

	created, err := s.phoneSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, created)
}

type assignPhoneNumberRequest struct {
	AssistantID string `json:"assistant_id" binding:"required"`
}

func (s *Server) AssignPhoneNumber(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, phonedomain.ErrNotFound)
		return
	}

	var req assignPhoneNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("assistant_id", "required", "assistant_id is required"))
		return
	}
	assistantID, err := snowflake.ParseString(strings.TrimSpace(req.AssistantID))
	if err != nil {
		AbortWithError(c, phonedomain.ErrAssistantNotFound)
		return
	}

	number, err := s.phoneSvc.Assign(c.Request.Context(), account.ID, id, assistantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, number)
}

func (s *Server) ReleasePhoneNumber(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, phonedomain.ErrNotFound)
		return
	}

	number, err := s.phoneSvc.Release(c.Request.Context(), account.ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, number)
}

func (s *Server) DeletePhoneNumber(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, phonedomain.ErrNotFound)
		return
	}

	if err := s.phoneSvc.Delete(c.Request.Context(), account.ID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	respondEmptySuccess(c)
}
