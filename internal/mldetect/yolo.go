package mldetect

import (
	"fmt"
)

// parseDetections extracts boxes above confThreshold from a raw YOLO output
// tensor. Two layouts exist in the wild and both detector models are
// accepted:
//
//	[1, 4+C, N] - attribute-major (YOLOv8): cx, cy, w, h rows followed by
//	              C class score rows, N anchor columns
//	[1, N, 6]   - anchor-major (YOLOv5 post-NMS export): x1, y1, x2, y2,
//	              confidence, class per row
//
// Boxes are returned in model input coordinates.
func parseDetections(data []float32, shape []int64, confThreshold float32) ([]Region, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("mldetect: unexpected output shape %v", shape)
	}
	d1, d2 := int(shape[1]), int(shape[2])
	if len(data) < d1*d2 {
		return nil, fmt.Errorf("mldetect: output data length %d short of shape %v", len(data), shape)
	}

	if d2 == 6 {
		return parseAnchorMajor(data, d1, confThreshold), nil
	}
	if d1 >= 5 && d2 > d1 {
		return parseAttributeMajor(data, d1, d2, confThreshold), nil
	}
	return nil, fmt.Errorf("mldetect: unrecognized output layout %v", shape)
}

func parseAnchorMajor(data []float32, rows int, confThreshold float32) []Region {
	var regions []Region
	for i := range rows {
		row := data[i*6 : i*6+6]
		conf := row[4]
		if conf < confThreshold {
			continue
		}
		regions = append(regions, Region{
			X1: float64(row[0]), Y1: float64(row[1]),
			X2: float64(row[2]), Y2: float64(row[3]),
			Confidence: float64(conf),
		})
	}
	return regions
}

func parseAttributeMajor(data []float32, attrs, anchors int, confThreshold float32) []Region {
	at := func(attr, anchor int) float32 {
		return data[attr*anchors+anchor]
	}
	var regions []Region
	for n := range anchors {
		conf := float32(0)
		for c := 4; c < attrs; c++ {
			if s := at(c, n); s > conf {
				conf = s
			}
		}
		if conf < confThreshold {
			continue
		}
		cx, cy := float64(at(0, n)), float64(at(1, n))
		w, h := float64(at(2, n)), float64(at(3, n))
		regions = append(regions, Region{
			X1: cx - w/2, Y1: cy - h/2,
			X2: cx + w/2, Y2: cy + h/2,
			Confidence: float64(conf),
		})
	}
	return regions
}
