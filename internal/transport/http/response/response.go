package response

import "github.com/gin-gonic/gin"

const (
	MsgInternalError = "Internal Server Error"
	MsgQueryFailed   = "Failed to process your query."
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

type DetailBody struct {
	Detail string `json:"detail"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Detail(c *gin.Context, detail string) {
	c.JSON(200, DetailBody{Detail: detail})
}

// Error writes the error body and aborts the remaining handler chain.
func Error(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{
		Code:   httpStatus,
		Detail: detail,
	})
}
