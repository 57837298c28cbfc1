package app

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with a sortable unique ID so
// log lines from one request can be correlated.
func requestIDMiddleware() gin.HandlerFunc {
	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("init snowflake node: %v", err)
	}

	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = node.Generate().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
