// Package simtest provides deterministic helpers shared by simulation tests.
package simtest

import (
	"immortal.idle/internal/sim/activity"
)

// Rolls returns a random source that yields vals in order and then repeats the
// last value. With no values it always returns 0.
func Rolls(vals ...float64) func() float64 {
	i := 0
	return func() float64 {
		if len(vals) == 0 {
			return 0
		}
		v := vals[i]
		if i < len(vals)-1 {
			i++
		}
		return v
	}
}

// Attrs is a fixed attribute table.
type Attrs map[activity.Attribute]float64

func (a Attrs) Attribute(k activity.Attribute) float64 { return a[k] }

// Progress records the engine callbacks made by effects.
type Progress struct {
	Claims      []activity.Type
	OddJobDays  int
	BeggingDays int
}

func (p *Progress) ClaimApprenticeship(t activity.Type) { p.Claims = append(p.Claims, t) }
func (p *Progress) AddOddJobDay()                      { p.OddJobDays++ }
func (p *Progress) AddBeggingDay()                     { p.BeggingDays++ }
