package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// roiFile is the on-disk ROI definition: a set of named rectangles in x/y/w/h
// form, drawn once over the camera view during calibration.
type roiFile struct {
	ROIs []roiEntry `json:"rois"`
}

type roiEntry struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// LoadROIs reads the ROI definition file. At least one ROI with positive
// dimensions is required; without one no violation can ever be evaluated.
func LoadROIs(path string) ([]detect.ROI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ROI file: %w", err)
	}

	var file roiFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse ROI file %s: %w", path, err)
	}

	var rois []detect.ROI
	for _, e := range file.ROIs {
		if e.W <= 0 || e.H <= 0 {
			return nil, fmt.Errorf("ROI %q has non-positive dimensions %gx%g", e.Name, e.W, e.H)
		}
		rois = append(rois, detect.ROI{
			Label: e.Name,
			Box:   geometry.BBox{X1: e.X, Y1: e.Y, X2: e.X + e.W, Y2: e.Y + e.H},
		})
	}

	if len(rois) == 0 {
		return nil, fmt.Errorf("ROI file %s defines no ROIs", path)
	}

	return rois, nil
}
