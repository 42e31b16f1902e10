package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) DeleteAccount(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.accountSvc.Delete(c.Request.Context(), account.ID); err != nil {
		AbortWithError(c, err)
		return
	}
	respondEmptySuccess(c)
}
