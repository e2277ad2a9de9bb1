package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/checkers-arena/internal/match"
	"github.com/park285/checkers-arena/internal/render"
	"github.com/park285/checkers-arena/pkg/checkersdto"
)

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ListRoomsHandler returns the lobby: rooms with a free seat.
func ListRoomsHandler(coord *match.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, checkersdto.OK(checkersdto.RoomsList{Rooms: coord.Rooms()}))
	}
}

// RoomStateHandler returns the caller's perspective of a room they sit in.
func RoomStateHandler(coord *match.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := coord.StateFor(c.Param("id"), playerFrom(c))
		if err != nil {
			fail(c, coord, err)
			return
		}
		c.JSON(http.StatusOK, checkersdto.OK(match.GameStateDTO(st, coord.StatusText(st))))
	}
}

// SubmitMoveHandler plays a move for the caller's seat. Both seats get the
// usual WebSocket updates; the response carries the caller's view.
func SubmitMoveHandler(coord *match.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkersdto.Move
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, coord, fmt.Errorf("%w: %v", match.ErrBadRequest, err))
			return
		}
		if len(req.Sequence) == 0 {
			fail(c, coord, fmt.Errorf("%w: sequence required", match.ErrBadRequest))
			return
		}
		st, err := coord.SubmitMoveAs(c.Request.Context(), c.Param("id"), playerFrom(c), req.Sequence)
		if err != nil {
			fail(c, coord, err)
			return
		}
		c.JSON(http.StatusOK, checkersdto.OK(match.GameStateDTO(st, coord.StatusText(st))))
	}
}

// BoardImageHandler renders the caller's perspective as a PNG.
func BoardImageHandler(coord *match.Coordinator, renderer render.BoardRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("id")
		st, err := coord.StateFor(roomID, playerFrom(c))
		if err != nil {
			fail(c, coord, err)
			return
		}
		img, err := renderer.RenderPNG(c.Request.Context(), st, render.Options{
			Title:   coord.Title(roomID),
			Caption: coord.StatusText(st),
		})
		if err != nil {
			fail(c, coord, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", img)
	}
}

// fail writes the {status: 1} envelope. Lookup and authorization failures get
// their HTTP status; game rule rejections are answered with 200.
func fail(c *gin.Context, coord *match.Coordinator, err error) {
	c.JSON(statusFor(match.KindOf(err)), checkersdto.Fail(coord.Message(err)))
}

func statusFor(kind match.Kind) int {
	switch kind {
	case match.KindNotFound:
		return http.StatusNotFound
	case match.KindUnauthorized:
		return http.StatusForbidden
	case match.KindBadRequest:
		return http.StatusBadRequest
	case match.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
