package triplclust

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default parameter values.
const (
	DefaultRadiusDNN        = 2.0  // smoothing radius r, in units of dnn
	DefaultNeighbours       = 19   // k
	DefaultMaxTriplets      = 2    // n
	DefaultMaxAngleCos      = 0.03 // a, expressed as 1 - cos(angle)
	DefaultScaleDNN         = 0.3  // s, in units of dnn
	DefaultThreshold        = 2.0  // t
	DefaultMinSize          = 5    // m, minimum triplets per cluster
	DefaultLinkRadiusDNN    = 10.0 // triplet pair search radius when dmax is off
	MinAutoThreshold        = 1.0  // floor for the automatic threshold
	AutoThresholdIQRFactor  = 1.5  // t = Q3 + factor*IQR of merge heights
	GapSplitMinPointsOffset = 2    // sub-clusters need at least m+2 points
)

// DefaultMaxAngle is the default angular tolerance a, in radians.
var DefaultMaxAngle = MaxAngleFromCos(DefaultMaxAngleCos)

// MaxAngleFromCos converts a tolerance given as 1 - cos(angle) to radians.
func MaxAngleFromCos(c float64) float64 { return math.Acos(1 - c) }

// ErrInvalidParams is returned when a parameter set fails validation.
var ErrInvalidParams = errors.New("invalid clustering parameters")

// Length is a distance that is either absolute or a multiple of the
// characteristic scale dnn.
type Length struct {
	Value    float64
	Relative bool // Value is a multiple of dnn
}

// Abs returns an absolute length.
func Abs(v float64) Length { return Length{Value: v} }

// DNN returns a length of v times dnn.
func DNN(v float64) Length { return Length{Value: v, Relative: true} }

// Resolve returns the absolute value given dnn.
func (l Length) Resolve(dnn float64) float64 {
	if l.Relative {
		return l.Value * dnn
	}
	return l.Value
}

// IsZero reports whether the length is unset.
func (l Length) IsZero() bool { return l.Value == 0 }

func (l Length) String() string {
	v := strconv.FormatFloat(l.Value, 'g', -1, 64)
	if l.Relative {
		return v + "dnn"
	}
	return v
}

// ParseLength parses "1.5" (absolute) or "0.3dnn" (relative to dnn).
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	relative := false
	if rest, ok := strings.CutSuffix(s, "dnn"); ok {
		relative = true
		s = strings.TrimSpace(rest)
		if s == "" {
			s = "1"
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q: %w", s, err)
	}
	return Length{Value: v, Relative: relative}, nil
}

// Params is the complete parameter set for one clustering run.
type Params struct {
	Radius        Length  // r: smoothing radius; zero disables smoothing
	Neighbours    int     // k: neighbours examined per point
	MaxTriplets   int     // n: triplets retained per point
	MaxAngle      float64 // a: max angle (radians) between triplet branches
	Scale         Length  // s: distance scale in the triplet metric
	Threshold     float64 // t: cut height when AutoThreshold is false
	AutoThreshold bool    // tauto: derive t from the merge heights
	MaxGap        Length  // dmax: largest gap allowed inside a cluster
	UseMaxGap     bool    // enables dmax for linkage and gap splitting
	MinSize       int     // m: minimum triplets per cluster
	Linkage       string  // single, complete or average
	LinkRadius    Length  // triplet pair search radius; zero picks a default
	Verbosity     int     // 0 silent, >0 progress, >1 debug artifacts
	Workers       int     // parallel neighbour search; <=0 uses GOMAXPROCS
}

// DefaultParams returns the production-default parameters.
func DefaultParams() Params {
	return Params{
		Radius:        DNN(DefaultRadiusDNN),
		Neighbours:    DefaultNeighbours,
		MaxTriplets:   DefaultMaxTriplets,
		MaxAngle:      DefaultMaxAngle,
		Scale:         DNN(DefaultScaleDNN),
		Threshold:     DefaultThreshold,
		AutoThreshold: true,
		MinSize:       DefaultMinSize,
		Linkage:       LinkageSingle,
	}
}

// NeedsDNN reports whether any length has to be scaled by dnn.
func (p Params) NeedsDNN() bool {
	if p.Radius.Relative || p.Scale.Relative || p.LinkRadius.Relative {
		return true
	}
	if p.UseMaxGap && p.MaxGap.Relative {
		return true
	}
	// The automatic link radius is expressed in dnn.
	return !p.UseMaxGap && p.LinkRadius.IsZero()
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	switch {
	case p.Radius.Value < 0 || math.IsNaN(p.Radius.Value):
		return fmt.Errorf("%w: radius must be non-negative, got %v", ErrInvalidParams, p.Radius)
	case p.Neighbours < 2:
		return fmt.Errorf("%w: k must be at least 2, got %d", ErrInvalidParams, p.Neighbours)
	case p.MaxTriplets < 1:
		return fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidParams, p.MaxTriplets)
	case !(p.MaxAngle > 0 && p.MaxAngle <= math.Pi):
		return fmt.Errorf("%w: a must be in (0, pi], got %v", ErrInvalidParams, p.MaxAngle)
	case !(p.Scale.Value > 0):
		return fmt.Errorf("%w: s must be positive, got %v", ErrInvalidParams, p.Scale)
	case !p.AutoThreshold && !(p.Threshold > 0):
		return fmt.Errorf("%w: t must be positive, got %v", ErrInvalidParams, p.Threshold)
	case p.UseMaxGap && !(p.MaxGap.Value > 0):
		return fmt.Errorf("%w: dmax must be positive when enabled, got %v", ErrInvalidParams, p.MaxGap)
	case p.MinSize < 1:
		return fmt.Errorf("%w: m must be at least 1, got %d", ErrInvalidParams, p.MinSize)
	case p.LinkRadius.Value < 0:
		return fmt.Errorf("%w: link radius must be non-negative, got %v", ErrInvalidParams, p.LinkRadius)
	}
	if _, err := LinkageByName(p.Linkage); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// resolved holds absolute values after dnn has been applied.
type resolved struct {
	dnn        float64
	radius     float64
	scale      float64
	maxGap     float64 // 0 when dmax is disabled
	linkRadius float64 // 0 means derive from the triplets
}

func (p Params) resolve(dnn float64) resolved {
	r := resolved{
		dnn:    dnn,
		radius: p.Radius.Resolve(dnn),
		scale:  p.Scale.Resolve(dnn),
	}
	if p.UseMaxGap {
		r.maxGap = p.MaxGap.Resolve(dnn)
	}
	if !p.LinkRadius.IsZero() {
		r.linkRadius = p.LinkRadius.Resolve(dnn)
	}
	return r
}
