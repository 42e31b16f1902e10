package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// clientEnvelope is the product's response wrapper. Data is typed any so
// a deliberate null can be sent.
type clientEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, clientEnvelope{Success: true, Data: data})
}

// respondEmptySuccess sends a normal-looking success with null data. The
// product hides plan limits from demo users this way: an
// assistant-create at the cap looks exactly like a success, and the user
// discovers the limit by noticing nothing was created.
func respondEmptySuccess(c *gin.Context) {
	c.JSON(http.StatusOK, clientEnvelope{Success: true, Data: nil})
}
