package design

import (
	"math/rand/v2"
	"strconv"
)

// Geometry is the on-screen rectangle a trial occupies.
type Geometry struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// GeometryFrom reads x, y, width, height. Short input yields zeros.
func GeometryFrom(xywh []int) Geometry {
	var g Geometry
	if len(xywh) == 4 {
		g = Geometry{X: xywh[0], Y: xywh[1], W: xywh[2], H: xywh[3]}
	}
	return g
}

// Trial is one screen: a condition's urns, waiting for a choice.
type Trial struct {
	Name      string     `json:"name"`
	Condition *Condition `json:"condition"`
	Geometry  Geometry   `json:"geometry"`
}

// Sequence builds one trial per condition, named trial1..trialN in the given
// order, then shuffles them. The shuffle is independent of any urn shuffle
// applied when the conditions were built.
func Sequence(r *rand.Rand, conditions []*Condition, geometry Geometry) []Trial {
	trials := make([]Trial, len(conditions))
	for i, c := range conditions {
		trials[i] = Trial{
			Name:      "trial" + strconv.Itoa(i+1),
			Condition: c,
			Geometry:  geometry,
		}
	}
	r.Shuffle(len(trials), func(i, j int) {
		trials[i], trials[j] = trials[j], trials[i]
	})
	return trials
}
