package game

import (
	"math/rand"
)

// Blueprint generation. Every round gets a fresh house facade: wall outline,
// a two-wide door on the baseline, up to four windows, and a tapered roof.
// The shape family is fixed; exact placement is randomized through rng so
// tests can seed it.

const (
	minHouseW = 6
	minHouseH = 4

	// MinGridW/MinGridH are the smallest grid the generator accepts; round
	// configs stay well above this. Smaller inputs are clamped up by the
	// caller contract, not supported.
	MinGridW = 8
	MinGridH = 7
)

func GenerateBlueprint(rng *rand.Rand, gridW, gridH int) Grid {
	if gridW < MinGridW {
		gridW = MinGridW
	}
	if gridH < MinGridH {
		gridH = MinGridH
	}
	g := NewGrid(gridW, gridH)

	// Roof height first; it constrains how tall the walls may reach.
	roofRows := 2 + rng.Intn(3)

	// House width relative to the grid, centered. Keep one empty column on
	// each side and enough width for the roof taper to stay non-empty.
	maxW := gridW - 2
	if minNeeded := 2*roofRows + 1; maxW < minNeeded {
		roofRows = (maxW - 1) / 2
		if roofRows < 2 {
			roofRows = 2
		}
	}
	minW := max(minHouseW, 2*roofRows+1)
	houseW := minW
	if maxW > minW {
		houseW = minW + rng.Intn(maxW-minW+1)
	}
	left := (gridW - houseW) / 2
	right := left + houseW - 1

	// Baseline one row above the bottom edge; wall height fills what the
	// roof leaves over.
	baseline := gridH - 2
	maxH := baseline - roofRows
	houseH := minHouseH
	if maxH > minHouseH {
		houseH = minHouseH + rng.Intn(maxH-minHouseH+1)
	}
	if houseH > maxH {
		houseH = maxH
	}
	topWall := baseline - houseH + 1

	// Rectangular wall outline.
	for x := left; x <= right; x++ {
		g[topWall][x] = TileWall
		g[baseline][x] = TileWall
	}
	for y := topWall; y <= baseline; y++ {
		g[y][left] = TileWall
		g[y][right] = TileWall
	}

	// Two-cell door on the baseline, clear of both corners.
	doorX := left + 1 + rng.Intn(houseW-3)
	g[baseline][doorX] = TileDoor
	g[baseline][doorX+1] = TileDoor

	// Up to four windows at two symmetric heights, strictly inside the
	// outline; door cells win ties.
	upperRow := topWall + 2
	lowerRow := baseline - 2
	for _, wy := range []int{upperRow, lowerRow} {
		if wy <= topWall || wy >= baseline {
			continue
		}
		for _, wx := range []int{left + 2, right - 2} {
			if wx <= left || wx >= right {
				continue
			}
			if g[wy][wx] == TileEmpty {
				g[wy][wx] = TileWindow
			}
		}
	}

	// Tiered roof: each row one cell narrower on both sides than the row
	// below it.
	for i := 0; i < roofRows; i++ {
		y := topWall - 1 - i
		if y < 0 {
			break
		}
		rl, rr := left+1+i, right-1-i
		if rl > rr {
			break
		}
		for x := rl; x <= rr; x++ {
			g[y][x] = TileRoof
		}
	}

	return g
}
