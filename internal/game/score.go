package game

import "math"

// boardScore is a board measured against the round blueprint.
type boardScore struct {
	Total    int // non-empty blueprint cells
	Match    int // cells equal to a non-empty blueprint cell
	Wrong    int // non-empty board cells that differ from the blueprint
	Accuracy int // round(100 * Match / Total), 100 when Total == 0
}

func scoreBoard(board, blueprint Grid) boardScore {
	var s boardScore
	for y := range blueprint {
		for x := range blueprint[y] {
			bp := blueprint[y][x]
			var cell Tile
			if y < len(board) && x < len(board[y]) {
				cell = board[y][x]
			}
			if bp != TileEmpty {
				s.Total++
				if cell == bp {
					s.Match++
				}
			}
			if cell != TileEmpty && cell != bp {
				s.Wrong++
			}
		}
	}
	if s.Total == 0 {
		s.Accuracy = 100
	} else {
		s.Accuracy = int(math.Round(100 * float64(s.Match) / float64(s.Total)))
	}
	return s
}

var rankPoints = map[int]int{1: 100, 2: 80, 3: 65}

// competitivePoints awards podium points by finish rank; lower ranks and
// unfinished players fall back to raw accuracy.
func competitivePoints(rank, accuracy int) int {
	if pts, ok := rankPoints[rank]; ok {
		return pts
	}
	return accuracy
}

// teamPoints applies the shared team formula: accuracy minus a capped
// wrong-cell penalty minus 5 per spent peek, clamped to [0, 100].
func teamPoints(accuracy, wrong, peeksSpent int) int {
	penalty := wrong
	if penalty > 20 {
		penalty = 20
	}
	pts := accuracy - penalty - 5*peeksSpent
	if pts < 0 {
		pts = 0
	}
	if pts > 100 {
		pts = 100
	}
	return pts
}
