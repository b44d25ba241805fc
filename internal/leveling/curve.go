package leveling

import (
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/PrimaryFunction/Arkos/internal/model"
)

// Default curve constants.
const (
	DefaultCharsPerPoint = 10
	DefaultLevelBase     = 100

	// MaxLevelBase bounds LevelBase so thresholds stay far from overflow for
	// any reachable level.
	MaxLevelBase = 1 << 31
)

// Curve holds the tunables of XP progression.
type Curve struct {
	// CharsPerPoint is how many characters earn one point. A message always
	// earns at least one point.
	CharsPerPoint int64

	// LevelBase scales the level-up threshold: leaving level L requires a
	// cumulative XP of LevelBase × L.
	LevelBase int64
}

// DefaultCurve returns the default progression.
func DefaultCurve() Curve {
	return Curve{CharsPerPoint: DefaultCharsPerPoint, LevelBase: DefaultLevelBase}
}

// Validate rejects curves that would break the floor or monotonicity.
func (c Curve) Validate() error {
	if c.CharsPerPoint < 1 {
		return fmt.Errorf("chars per point must be >= 1, got %d", c.CharsPerPoint)
	}
	if c.LevelBase < 1 || c.LevelBase > MaxLevelBase {
		return fmt.Errorf("level base must be between 1 and %d, got %d", MaxLevelBase, c.LevelBase)
	}
	return nil
}

// Delta returns the XP earned by text. Length is counted in characters after
// NFC normalization, so "é" typed as one or two code points earns the same.
func (c Curve) Delta(text string) int64 {
	n := int64(utf8.RuneCountInString(norm.NFC.String(text)))
	d := n / c.CharsPerPoint
	if d < 1 {
		return 1
	}
	return d
}

// Threshold returns the cumulative XP at which a user leaves level. It
// saturates at math.MaxInt64.
func (c Curve) Threshold(level int64) int64 {
	if level > math.MaxInt64/c.LevelBase {
		return math.MaxInt64
	}
	return c.LevelBase * level
}

// Apply adds delta to rec and reports whether that reached the threshold of
// the current level. At most one level is gained per call.
func (c Curve) Apply(rec model.XPRecord, delta int64) (model.XPRecord, bool) {
	rec.XP += delta
	if rec.XP >= c.Threshold(rec.Level) {
		rec.Level++
		return rec, true
	}
	return rec, false
}
