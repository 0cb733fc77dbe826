package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
)

// DefaultAmin is the power floor applied before taking logarithms.
const DefaultAmin = 1e-10

type dbOptions struct {
	ref    float64
	hasRef bool
	amin   float64
	topDB  float64
}

// DBOption configures PowerToDB.
type DBOption func(*dbOptions)

// WithReference fixes the 0 dB reference power. Without it the global
// maximum of the matrix is used.
func WithReference(ref float64) DBOption {
	return func(o *dbOptions) {
		o.ref = ref
		o.hasRef = true
	}
}

// WithAmin sets the floor applied to both power and reference.
func WithAmin(amin float64) DBOption {
	return func(o *dbOptions) {
		o.amin = amin
	}
}

// WithTopDB clips the output to topDB below its peak. Zero disables
// clipping.
func WithTopDB(topDB float64) DBOption {
	return func(o *dbOptions) {
		o.topDB = topDB
	}
}

// PowerToDB converts a power matrix of any shape to decibels,
//
//	dB = 10 * log10(max(p, amin) / max(ref, amin))
//
// and returns the converted matrix and the reference power that was used.
// The input is not modified. With the default reference every output is
// <= 0 and the loudest cell is exactly 0 dB.
func PowerToDB(power [][]float64, opts ...DBOption) ([][]float64, float64, error) {
	o := dbOptions{amin: DefaultAmin}
	for _, opt := range opts {
		opt(&o)
	}

	if !(o.amin > 0) {
		return nil, 0, common.InvalidArgument("amin must be positive: %g", o.amin)
	}
	if o.topDB < 0 || math.IsNaN(o.topDB) {
		return nil, 0, common.InvalidArgument("top_db must be non-negative: %g", o.topDB)
	}

	globalMax, ok := common.MatrixMax(power)
	if !ok {
		return nil, 0, common.InvalidArgument("power matrix is empty")
	}

	ref := globalMax
	if o.hasRef {
		ref = o.ref
	}
	refFloor := math.Max(ref, o.amin)

	db := make([][]float64, len(power))
	peak := math.Inf(-1)
	for i, row := range power {
		db[i] = make([]float64, len(row))
		for j, p := range row {
			v := 10 * math.Log10(math.Max(p, o.amin)/refFloor)
			db[i][j] = v
			peak = math.Max(peak, v)
		}
	}

	if o.topDB > 0 {
		floor := peak - o.topDB
		for _, row := range db {
			for j, v := range row {
				if v < floor {
					row[j] = floor
				}
			}
		}
	}

	return db, ref, nil
}
