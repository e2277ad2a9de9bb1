// Package httpapi exposes the lobby, move submission and board images over
// plain HTTP, next to the WebSocket endpoint.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/checkers-arena/internal/match"
	"github.com/park285/checkers-arena/internal/render"
)

// NewRouter wires every route onto a fresh gin engine. ws handles /ws.
func NewRouter(coord *match.Coordinator, ws http.Handler, renderer render.BoardRenderer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", HealthHandler())
	r.GET("/ws", gin.WrapH(ws))

	rooms := r.Group("/rooms", requireIdentity(coord))
	rooms.GET("", ListRoomsHandler(coord))
	rooms.GET("/:id", RoomStateHandler(coord))
	rooms.POST("/:id/moves", SubmitMoveHandler(coord))
	rooms.GET("/:id/board.png", BoardImageHandler(coord, renderer))

	return r
}
