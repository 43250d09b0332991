package detection

import "fmt"

// Candidate is a raw network prediction before non-maximum suppression.
// Coordinates are centre-format in network-input pixels.
type Candidate struct {
	CX, CY, W, H float64
	Score        float64
	ClassID      int
}

// DecodeDarknet decodes a darknet-style output of rows x cols values, one
// row per anchor laid out as [cx, cy, w, h, objectness, class scores...].
// Box values are normalised to the input size. The score of a row is
// objectness times its best class score.
func DecodeDarknet(data []float32, rows, cols, numClasses int, g Geometry, threshold float64) ([]Candidate, error) {
	if cols-5 != numClasses {
		return nil, fmt.Errorf("%w: output has %d classes, configured %d", ErrClassMismatch, cols-5, numClasses)
	}
	if len(data) < rows*cols {
		return nil, fmt.Errorf("detection: output too short: %d < %d", len(data), rows*cols)
	}

	var out []Candidate
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		obj := float64(row[4])
		if obj < threshold {
			continue
		}

		best, bestID := float32(0), 0
		for c, s := range row[5:] {
			if s > best {
				best, bestID = s, c
			}
		}

		score := obj * float64(best)
		if score < threshold {
			continue
		}

		out = append(out, Candidate{
			CX:      float64(row[0]) * float64(g.InputW),
			CY:      float64(row[1]) * float64(g.InputH),
			W:       float64(row[2]) * float64(g.InputW),
			H:       float64(row[3]) * float64(g.InputH),
			Score:   score,
			ClassID: bestID,
		})
	}
	return out, nil
}

// DecodeYOLOv8 decodes the transposed [4+nc, n] layout produced by
// anchor-free exports. Box values are already in input pixels and there is
// no objectness column.
func DecodeYOLOv8(data []float32, attrs, n, numClasses int, threshold float64) ([]Candidate, error) {
	if attrs-4 != numClasses {
		return nil, fmt.Errorf("%w: output has %d classes, configured %d", ErrClassMismatch, attrs-4, numClasses)
	}
	if len(data) < attrs*n {
		return nil, fmt.Errorf("detection: output too short: %d < %d", len(data), attrs*n)
	}

	var out []Candidate
	for i := 0; i < n; i++ {
		best, bestID := float32(0), 0
		for c := 4; c < attrs; c++ {
			if s := data[c*n+i]; s > best {
				best, bestID = s, c-4
			}
		}
		if float64(best) < threshold {
			continue
		}

		out = append(out, Candidate{
			CX:      float64(data[0*n+i]),
			CY:      float64(data[1*n+i]),
			W:       float64(data[2*n+i]),
			H:       float64(data[3*n+i]),
			Score:   float64(best),
			ClassID: bestID,
		})
	}
	return out, nil
}

// GroupByClass splits candidate indices by class so suppression can run
// per class.
func GroupByClass(cands []Candidate) map[int][]int {
	groups := make(map[int][]int)
	for i, c := range cands {
		groups[c.ClassID] = append(groups[c.ClassID], i)
	}
	return groups
}
