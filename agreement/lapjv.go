package agreement

import (
	"errors"
	"fmt"
)

// large is the initial dual value, costs must stay well below it
const large = 1000000.0

// ErrNoAssignment is returned when augmentation fails to find a path
var ErrNoAssignment = errors.New("no valid assignment")

// lap holds the state of a dense square Linear Assignment Problem solved
// with the Jonker-Volgenant algorithm
type lap struct {
	n    int
	cost [][]float64
	// x is the column assigned to each row, y the row assigned to each column
	x []int
	y []int
	// v are the column dual values
	v []float64
	// free lists unassigned rows
	free []int
}

func newLap(cost [][]float64) *lap {

	n := len(cost)

	return &lap{
		n:    n,
		cost: cost,
		x:    make([]int, n),
		y:    make([]int, n),
		v:    make([]float64, n),
		free: make([]int, n),
	}
}

// solve assigns every row to a column minimising the total cost
func (l *lap) solve() error {

	if l.n == 0 {
		return nil
	}

	nFree := l.columnReduction()

	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = l.rowReduction(nFree)
	}

	if nFree > 0 {
		return l.augment(nFree)
	}

	return nil
}

// columnReduction performs column reduction and reduction transfer and
// returns the number of free rows
func (l *lap) columnReduction() int {

	n := l.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		l.x[i] = -1
		l.v[i] = large
		l.y[i] = 0
		unique[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := l.cost[i][j]; c < l.v[j] {
				l.v[j] = c
				l.y[j] = i
			}
		}
	}

	for j := n - 1; j >= 0; j-- {
		i := l.y[j]

		if l.x[i] < 0 {
			l.x[i] = j
		} else {
			unique[i] = false
			l.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if l.x[i] < 0 {
			l.free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := l.x[i]
		minVal := large

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := l.cost[i][j2] - l.v[j2]; c < minVal {
				minVal = c
			}
		}

		l.v[j] -= minVal
	}

	return nFree
}

// rowReduction performs augmenting row reduction over the free rows and
// returns the number of rows still free
func (l *lap) rowReduction(nFree int) int {

	n := l.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := l.free[current]
		current++

		// find the lowest and second lowest reduced cost of the row
		j1 := 0
		v1 := l.cost[freeI][0] - l.v[0]
		j2 := -1
		v2 := large

		for j := 1; j < n; j++ {
			c := l.cost[freeI][j] - l.v[j]

			if c >= v2 {
				continue
			}

			if c >= v1 {
				v2 = c
				j2 = j
			} else {
				v2 = v1
				v1 = c
				j2 = j1
				j1 = j
			}
		}

		i0 := l.y[j1]
		v1New := l.v[j1] - (v2 - v1)
		v1Lowers := v1New < l.v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				l.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = l.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					l.free[current] = i0
				} else {
					l.free[newFree] = i0
					newFree++
				}
			}

		} else if i0 >= 0 {
			l.free[newFree] = i0
			newFree++
		}

		l.x[freeI] = j1
		l.y[j1] = freeI
	}

	return newFree
}

// augment assigns the remaining free rows along shortest augmenting paths
func (l *lap) augment(nFree int) error {

	n := l.n
	pred := make([]int, n)

	for _, freeI := range l.free[:nFree] {

		j := l.findPath(freeI, pred)

		if j < 0 || j >= n {
			return fmt.Errorf("%w: path for row %d ended at column %d",
				ErrNoAssignment, freeI, j)
		}

		i := -1

		for k := 0; i != freeI; k++ {
			if k >= n {
				return fmt.Errorf("%w: path for row %d does not terminate",
					ErrNoAssignment, freeI)
			}

			i = pred[j]
			l.y[j] = i
			j, l.x[i] = l.x[i], j
		}
	}

	return nil
}

// findPath runs a single iteration of the modified Dijkstra shortest path
// search from startI and returns the free column the path ends at
func (l *lap) findPath(startI int, pred []int) int {

	n := l.n
	lo := 0
	hi := 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = startI
		d[j] = l.cost[startI][j] - l.v[j]
	}

	for finalJ == -1 {
		// no columns left on the scan list
		if lo == hi {
			nReady = lo
			hi = l.findMin(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; l.y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = l.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		l.v[j] += d[j] - mind
	}

	return finalJ
}

// findMin moves the columns with minimum d from cols[lo:] to the front of
// that range and returns the end of the moved block
func (l *lap) findMin(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < l.n; k++ {

		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scan relaxes the columns not yet on the scan list using the columns in
// cols[lo:hi].  It returns a free column reached at minimum distance or -1.
func (l *lap) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := l.y[j]
		mind := d[j]
		h := l.cost[i][j] - l.v[j] - mind

		for k := *hi; k < l.n; k++ {
			j = cols[k]
			red := l.cost[i][j] - l.v[j] - h

			if red >= d[j] {
				continue
			}

			d[j] = red
			pred[j] = i

			if red == mind {
				if l.y[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				*hi++
			}
		}
	}

	return -1
}

// Assign solves the rectangular assignment problem for cost, a matrix with
// one row per left item and one column per right item.  Pairs costing
// costLimit or more are never assigned.  rowsol holds the column assigned to
// each row and colsol the row assigned to each column, -1 marks unassigned.
// Every cost must be finite and costLimit must lie in (0, large).
func Assign(cost [][]float64, costLimit float64) (rowsol, colsol []int, err error) {

	nRows := len(cost)
	nCols := 0

	if nRows > 0 {
		nCols = len(cost[0])
	}

	rowsol = make([]int, nRows)
	colsol = make([]int, nCols)

	for i := range rowsol {
		rowsol[i] = -1
	}

	for j := range colsol {
		colsol[j] = -1
	}

	if nRows == 0 || nCols == 0 {
		return rowsol, colsol, nil
	}

	if !(costLimit > 0 && costLimit < large) {
		return nil, nil, fmt.Errorf("cost limit %v out of range", costLimit)
	}

	// extend to a square matrix where each row and column may instead pair
	// with a dummy at half the cost limit, dummies pair with each other for free
	n := nRows + nCols
	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			switch {
			case i < nRows && j < nCols:
				if len(cost[i]) != nCols {
					return nil, nil, fmt.Errorf("cost row %d has %d columns, expected %d",
						i, len(cost[i]), nCols)
				}

				ext[i][j] = min(cost[i][j], costLimit)

			case i >= nRows && j >= nCols:
				ext[i][j] = 0

			default:
				ext[i][j] = costLimit / 2
			}
		}
	}

	l := newLap(ext)

	if err := l.solve(); err != nil {
		return nil, nil, err
	}

	for i := 0; i < nRows; i++ {
		j := l.x[i]

		if j < 0 || j >= nCols || cost[i][j] >= costLimit {
			continue
		}

		rowsol[i] = j
		colsol[j] = i
	}

	return rowsol, colsol, nil
}
