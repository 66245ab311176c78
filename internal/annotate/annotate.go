// Package annotate renders detection overlays onto video frames: ROI
// rectangles, per-class detection boxes, track states, and the violation
// banner shown on the dashboard stream.
package annotate

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/engine"
	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// JPEGQuality keeps re-encoded frames small enough for the websocket stream.
const JPEGQuality = 70

// Overlay colors.
var (
	colorROI       = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	colorHand      = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorScooper   = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	colorPizza     = color.RGBA{R: 255, G: 165, B: 0, A: 0}
	colorPerson    = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	colorViolation = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorBanner    = color.RGBA{R: 30, G: 0, B: 0, A: 0}
)

// Decode decodes a base64 JPEG into a Mat. The caller owns the Mat and must
// Close it.
func Decode(b64 string) (gocv.Mat, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("decode frame base64: %w", err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("decode frame JPEG: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("decoded frame is empty")
	}
	return mat, nil
}

// Encode encodes a Mat as base64 JPEG.
func Encode(img gocv.Mat) (string, error) {
	buf, err := gocv.IMEncodeWithParams(".jpg", img, []int{gocv.IMWriteJpegQuality, JPEGQuality})
	if err != nil {
		return "", fmt.Errorf("encode frame JPEG: %w", err)
	}
	defer buf.Close()

	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}

// SaveJPEG writes a Mat to disk as JPEG evidence.
func SaveJPEG(path string, img gocv.Mat) error {
	if ok := gocv.IMWriteWithParams(path, img, []int{gocv.IMWriteJpegQuality, JPEGQuality}); !ok {
		return fmt.Errorf("write frame to %s", path)
	}
	return nil
}

func rect(b geometry.BBox) image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// Draw renders the full overlay onto img in place: configured ROIs, every
// detection box by class, the state of each active track, and the running
// violation counter with an alert banner when this frame resolved a
// violation.
func Draw(img *gocv.Mat, rois []geometry.Labeled, frame *detect.Frame, tracks []engine.TrackView, violationCount int, hasViolation bool) {
	for _, roi := range rois {
		gocv.Rectangle(img, rect(roi.Box), colorROI, 3)
		gocv.PutText(img, roi.Label, image.Pt(int(roi.Box.X1), int(roi.Box.Y1)-10), gocv.FontHersheySimplex, 0.7, colorROI, 2)
	}

	for _, d := range frame.Detections {
		switch d.Class {
		case detect.ClassHand:
			gocv.Rectangle(img, rect(d.Box), colorHand, 2)
			gocv.PutText(img, "Hand", image.Pt(int(d.Box.X1), int(d.Box.Y1)-5), gocv.FontHersheySimplex, 0.5, colorHand, 2)
		case detect.ClassScooper:
			gocv.Rectangle(img, rect(d.Box), colorScooper, 2)
			gocv.PutText(img, "Scooper", image.Pt(int(d.Box.X1), int(d.Box.Y1)-5), gocv.FontHersheySimplex, 0.5, colorScooper, 2)
		case detect.ClassPizza:
			gocv.Rectangle(img, rect(d.Box), colorPizza, 2)
			gocv.PutText(img, "Pizza", image.Pt(int(d.Box.X1), int(d.Box.Y1)-5), gocv.FontHersheySimplex, 0.5, colorPizza, 2)
		case detect.ClassPerson:
			gocv.Rectangle(img, rect(d.Box), colorPerson, 1)
			gocv.PutText(img, "Person", image.Pt(int(d.Box.X1), int(d.Box.Y1)-5), gocv.FontHersheySimplex, 0.4, colorPerson, 1)
		}
	}

	// Track states sit below the hand boxes so they remain readable next to
	// the detector labels.
	for _, t := range tracks {
		gocv.PutText(img, string(t.State), image.Pt(int(t.Box.X1), int(t.Box.Y2)+15), gocv.FontHersheySimplex, 0.4, colorHand, 1)
	}

	gocv.Rectangle(img, image.Rect(10, 10, 450, 100), colorBanner, -1)
	gocv.PutText(img, fmt.Sprintf("Violations: %d", violationCount), image.Pt(20, 45), gocv.FontHersheySimplex, 1.2, colorViolation, 3)

	if hasViolation {
		gocv.Rectangle(img, image.Rect(10, 105, 450, 150), colorViolation, -1)
		gocv.PutText(img, "!! VIOLATION DETECTED !!", image.Pt(20, 138), gocv.FontHersheySimplex, 0.9, color.RGBA{R: 255, G: 255, B: 255, A: 0}, 3)
	}
}
