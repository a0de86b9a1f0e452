package navigation

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
)

const (
	ViewportSize = 400
	viewBound    = 2 * Bound // World coordinates shown along each axis
)

var (
	background    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	landmarkColor = color.RGBA{R: 64, G: 64, B: 64, A: 255}
	agentColor    = color.RGBA{R: 89, G: 89, B: 217, A: 180}
	coveredColor  = color.RGBA{R: 64, G: 179, B: 64, A: 255}
)

// worldToPixel converts world coordinates to pixel coordinates with
// the origin at the centre of the viewport and y pointing up
func worldToPixel(x, y float64) (float64, float64) {
	scale := ViewportSize / (2 * viewBound)
	return ViewportSize/2 + x*scale, ViewportSize/2 - y*scale
}

// Render draws the current agents and landmarks to a PNG file.
// Landmarks covered by an agent are drawn in green.
func (n *Navigation) Render(filename string) error {
	dc := gg.NewContext(ViewportSize, ViewportSize)
	dc.SetColor(background)
	dc.Clear()

	scale := ViewportSize / (2 * viewBound)
	for _, l := range n.landmarks {
		x, y := worldToPixel(l.X, l.Y)
		dc.DrawCircle(x, y, LandmarkSize*scale)
		if n.closest(l) <= CoverRadius {
			dc.SetColor(coveredColor)
		} else {
			dc.SetColor(landmarkColor)
		}
		dc.Fill()
	}

	for i, p := range n.pos {
		x, y := worldToPixel(p.X, p.Y)
		dc.DrawCircle(x, y, AgentSize*scale)
		dc.SetColor(agentColor)
		dc.Fill()

		dc.SetColor(landmarkColor)
		dc.DrawStringAnchored(fmt.Sprint(i), x, y, 0.5, 0.5)
	}

	dc.SetColor(landmarkColor)
	dc.DrawString(fmt.Sprintf("step %v", n.steps), 10, 20)

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("render: %v", err)
	}
	return nil
}
