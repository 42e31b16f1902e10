package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
)

func (s *Server) GetLimits(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.quotaSvc.GetLimits(c.Request.Context(), account.ID, account.Plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, view)
}

func (s *Server) LimitsHistory(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.quotaSvc.ListLedger(c.Request.Context(), quotadomain.ListLedgerRequest{
		AccountID: account.ID,
		Action:    strings.TrimSpace(c.Query("action")),
		Reason:    strings.TrimSpace(c.Query("reason")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  queryPageSize(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) ResetLimits(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.quotaSvc.ResetCallTimeUsage(c.Request.Context(), account.ID); err != nil {
		AbortWithError(c, err)
		return
	}
	respondEmptySuccess(c)
}
