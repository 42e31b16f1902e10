package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voxlane/voxlane/internal/accountctx"
	accountdomain "github.com/voxlane/voxlane/internal/account/domain"
	"github.com/voxlane/voxlane/internal/providers/identity"
)

const authAccountKey = "auth_account"

// AuthRequired resolves the bearer token, lazily provisions the account,
// and rejects expired demos with the exact same error as a missing or
// invalid credential.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.identity.ResolveToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenInvalid) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}

		account, err := s.accountSvc.GetOrCreateByExternalID(c.Request.Context(), principal.Subject, principal.Email)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		// An expired demo must look like it never existed.
		if account.Expired(time.Now().UTC()) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(authAccountKey, account)
		c.Request = c.Request.WithContext(accountctx.WithAccountID(c.Request.Context(), account.ID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentAccount(c *gin.Context) (*accountdomain.Account, bool) {
	value, ok := c.Get(authAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := value.(*accountdomain.Account)
	return account, ok && account != nil
}
