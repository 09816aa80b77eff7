package flock

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
)

// maxCellCoord bounds the cell coordinates the grid accepts; beyond it the
// float to int conversion is no longer exact and may overflow.
const maxCellCoord = 1 << 53

type cellKey struct {
	x, y, z int
}

// grid is a uniform spatial hash over agent indices. It is only built when a
// neighbour radius is set, with the cell size equal to that radius, so a
// 3x3x3 scan around an agent's cell is guaranteed to hold every agent within
// the radius.
type grid struct {
	cellSize float64
	cells    map[cellKey][]int
}

func newGrid(cellSize float64) *grid {
	return &grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
	}
}

func (g *grid) keyOf(p geometry.Vector3D) cellKey {
	return cellKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
		z: int(math.Floor(p.Z / g.cellSize)),
	}
}

// fits reports whether every cell coordinate of p stays within maxCellCoord.
func (g *grid) fits(p geometry.Vector3D) bool {
	return math.Abs(p.X/g.cellSize) < maxCellCoord &&
		math.Abs(p.Y/g.cellSize) < maxCellCoord &&
		math.Abs(p.Z/g.cellSize) < maxCellCoord
}

// rebuild re-buckets every agent. Slices are truncated, not dropped, so
// their backing arrays are reused from one pass to the next, unless the map
// has collected many more cells than there are agents.
// It returns false, leaving the grid empty, when an agent lies too far out
// to be bucketed.
func (g *grid) rebuild(agents []Agent) bool {
	if len(g.cells) > 4*len(agents)+64 {
		clear(g.cells)
	}
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for _, a := range agents {
		if !g.fits(a.Position) {
			return false
		}
	}
	for i, a := range agents {
		key := g.keyOf(a.Position)
		g.cells[key] = append(g.cells[key], i)
	}
	return true
}

// nearby appends to dst the indices of every agent in the 3x3x3 block of
// cells around p and returns the extended slice.
func (g *grid) nearby(dst []int, p geometry.Vector3D) []int {
	c := g.keyOf(p)
	for i := c.x - 1; i <= c.x+1; i++ {
		for j := c.y - 1; j <= c.y+1; j++ {
			for k := c.z - 1; k <= c.z+1; k++ {
				if idx, ok := g.cells[cellKey{i, j, k}]; ok {
					dst = append(dst, idx...)
				}
			}
		}
	}
	return dst
}
