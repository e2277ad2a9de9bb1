// Package render draws a seat's view of a game as a PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/session"
)

// Options carries the text shown above the board.
type Options struct {
	Title   string
	Caption string
}

// BoardRenderer turns a perspective snapshot into image bytes.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, st session.State, opts Options) ([]byte, error)
}

// PNGRenderer is the default BoardRenderer.
type PNGRenderer struct {
	squareSize int
}

func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{squareSize: 64}
}

const (
	sideMargin   = 28
	topMargin    = 64
	bottomMargin = 28
	panelHeight  = 40
	panelRadius  = 10
	panelPadding = 16
)

var (
	lightSquare       = color.RGBA{233, 207, 163, 255}
	darkSquare        = color.RGBA{187, 136, 96, 255}
	backgroundColor   = color.RGBA{20, 22, 33, 255}
	pinnedFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 150}
	hudPanelColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary  = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateText    = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	boardShadowColor  = color.NRGBA{0, 0, 0, 60}
	defaultTitleLabel = "Checkers"
)

// Size returns the width and height of every image this renderer produces.
func (r *PNGRenderer) Size() (int, int) {
	boardSize := r.squareSize * board.Size
	return boardSize + sideMargin*2, boardSize + topMargin + bottomMargin
}

func (r *PNGRenderer) RenderPNG(ctx context.Context, st session.State, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width, height := r.Size()
	boardSize := r.squareSize * board.Size
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect)
	drawBoardShadow(img, boardRect)
	drawSquares(img, r.squareSize, origin)
	if st.Obligation.MustContinue {
		at := viewCoord(st.Obligation.PinnedOrigin, st.Seat)
		drawSquareOverlay(img, cellRect(at, r.squareSize, origin), pinnedFill)
	}
	if err := drawPieces(img, st.Board, r.squareSize, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, st.Seat, r.squareSize, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// viewCoord maps a canonical cell to where it appears on seat's rotated board.
func viewCoord(c board.Coord, seat board.Side) board.Coord {
	if seat == board.First {
		return c
	}
	return board.Coord{X: board.Size - 1 - c.X, Y: board.Size - 1 - c.Y}
}

func cellRect(c board.Coord, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + c.X*squareSize
	y := origin.Y + c.Y*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(row, col int) color.Color {
	if (row+col)%2 == 1 {
		return darkSquare
	}
	return lightSquare
}

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadow := image.Rect(boardRect.Min.X+4, boardRect.Min.Y+6, boardRect.Max.X+6, boardRect.Max.Y+8)
	imagedraw.Draw(img, shadow, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			rect := cellRect(board.Coord{X: col, Y: row}, squareSize, origin)
			imagedraw.Draw(dst, rect, image.NewUniform(squareColor(row, col)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawSquareOverlay(dst imagedraw.Image, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(dst, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawPieces(dst imagedraw.Image, b board.Board, squareSize int, origin image.Point) error {
	for row := range b {
		for col, p := range b[row] {
			if p == board.Empty {
				continue
			}
			pieceImg, err := renderPieceImage(p, squareSize)
			if err != nil {
				return err
			}
			rect := cellRect(board.Coord{X: col, Y: row}, squareSize, origin)
			imagedraw.Draw(dst, rect, pieceImg, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawCoordinates labels columns below the board and rows to its left with
// canonical indices, so the labels match the coordinates moves are sent in.
func drawCoordinates(dst imagedraw.Image, seat board.Side, squareSize int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(coordinateText), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + board.Size*squareSize

	for i := 0; i < board.Size; i++ {
		canonical := viewCoord(board.Coord{X: i, Y: i}, seat)
		center := i*squareSize + squareSize/2
		drawCenteredText(drawer, strconv.Itoa(canonical.X), origin.X+center, boardEndY+ascent+4)
		drawCenteredText(drawer, strconv.Itoa(canonical.Y), origin.X-sideMargin/2, origin.Y+center+ascent/2)
	}
}

func drawHUD(img *image.RGBA, opts Options, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = defaultTitleLabel
	}
	caption := strings.TrimSpace(opts.Caption)

	panel := image.Rect(boardRect.Min.X, boardRect.Min.Y-12-panelHeight, boardRect.Max.X, boardRect.Min.Y-12)
	drawRoundedPanel(img, panel, panelRadius, hudPanelColor)

	if caption == "" {
		drawCenteredString(drawer, panel, truncateWithEllipsis(face, title, panel.Dx()-panelPadding*2), hudTextPrimary)
		return
	}
	half := panel.Dx() / 2
	left := image.Rect(panel.Min.X, panel.Min.Y, panel.Min.X+half, panel.Max.Y)
	right := image.Rect(panel.Min.X+half, panel.Min.Y, panel.Max.X, panel.Max.Y)
	drawCenteredString(drawer, left, truncateWithEllipsis(face, title, half-panelPadding*2), hudTextPrimary)
	drawCenteredString(drawer, right, truncateWithEllipsis(face, caption, half-panelPadding*2), hudTextSecondary)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = min(max(radius, 0), rect.Dx()/2, rect.Dy()/2)
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// A cross of two rectangles plus four corner discs; each pixel is
	// painted once so translucent colours stay even.
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []struct {
		center image.Point
		quad   image.Rectangle
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+radius, rect.Min.Y+radius)},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), image.Rect(rect.Max.X-radius, rect.Min.Y, rect.Max.X, rect.Min.Y+radius)},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), image.Rect(rect.Min.X, rect.Max.Y-radius, rect.Min.X+radius, rect.Max.Y)},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), image.Rect(rect.Max.X-radius, rect.Max.Y-radius, rect.Max.X, rect.Max.Y)},
	}
	for _, c := range corners {
		drawQuarterDisc(img, c.center, c.quad, radius, clr)
	}
}

func drawQuarterDisc(img *image.RGBA, center image.Point, quad image.Rectangle, radius int, clr color.Color) {
	rSquared := radius * radius
	for y := quad.Min.Y; y < quad.Max.Y; y++ {
		for x := quad.Min.X; x < quad.Max.X; x++ {
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy > rSquared {
				continue
			}
			p := image.Pt(x, y)
			if p.In(img.Bounds()) {
				imagedraw.Draw(img, image.Rect(x, y, x+1, y+1), image.NewUniform(clr), image.Point{}, imagedraw.Over)
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
