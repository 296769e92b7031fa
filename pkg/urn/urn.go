// Package urn models the urns shown to participants: their colors, how many
// balls of each color they hold, and how a ball is drawn from them.
package urn

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/r3d91ll/urnlab/pkg/errors"
)

// Kind distinguishes urns whose mixture is disclosed from urns whose mixture is hidden.
type Kind string

const (
	// KindFixed urns hold a caller-specified, disclosed mixture.
	KindFixed Kind = "fixed"

	// KindRandom urns hold a mixture drawn uniformly at construction and never shown.
	KindRandom Kind = "random"
)

// IsValid returns true if this is a known urn kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindFixed, KindRandom:
		return true
	default:
		return false
	}
}

// Urn is one urn in a condition. Counts is aligned with Colors and sums to Size.
type Urn struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Colors    []string `json:"colors"`
	Counts    []int    `json:"counts"`
	Size      int      `json:"size"`
	ImagePath string   `json:"image_path,omitempty"`
}

// NewFixed creates an urn with an explicit count per color.
func NewFixed(name string, colors []string, counts []int, imagePath string) (*Urn, error) {
	if err := checkColors(name, colors); err != nil {
		return nil, err
	}
	if len(counts) != len(colors) {
		return nil, errors.ValidationErrorf(errors.ErrUrnInvalid,
			"urn %s has %d colors but %d counts", name, len(colors), len(counts))
	}
	size := 0
	for i, n := range counts {
		if n < 0 {
			return nil, errors.ValidationErrorf(errors.ErrUrnInvalid,
				"urn %s has negative count %d for %s", name, n, colors[i])
		}
		size += n
	}
	return &Urn{
		Name:      name,
		Kind:      KindFixed,
		Colors:    append([]string(nil), colors...),
		Counts:    append([]int(nil), counts...),
		Size:      size,
		ImagePath: imagePath,
	}, nil
}

// NewRandom creates an urn of the given size whose split across colors is
// sampled once with Partition. The split is frozen for the urn's lifetime.
func NewRandom(r *rand.Rand, name string, colors []string, size int, imagePath string) (*Urn, error) {
	if err := checkColors(name, colors); err != nil {
		return nil, err
	}
	counts, err := Partition(r, size, len(colors))
	if err != nil {
		if e, ok := errors.As(err); ok {
			e.WithContext("urn", name)
		}
		return nil, err
	}
	return &Urn{
		Name:      name,
		Kind:      KindRandom,
		Colors:    append([]string(nil), colors...),
		Counts:    counts,
		Size:      size,
		ImagePath: imagePath,
	}, nil
}

func checkColors(name string, colors []string) error {
	if name == "" {
		return errors.ValidationErrorf(errors.ErrUrnInvalid, "urn name is required")
	}
	if len(colors) < 2 {
		return errors.ValidationErrorf(errors.ErrUrnInvalid,
			"urn %s needs at least 2 colors, got %d", name, len(colors))
	}
	seen := make(map[string]bool, len(colors))
	for _, c := range colors {
		if c == "" || seen[c] {
			return errors.ValidationErrorf(errors.ErrUrnInvalid,
				"urn %s has an empty or duplicate color %q", name, c)
		}
		seen[c] = true
	}
	return nil
}

// Validate checks the count invariants.
func (u *Urn) Validate() error {
	if len(u.Counts) != len(u.Colors) {
		return errors.ValidationErrorf(errors.ErrUrnInvalid,
			"urn %s: %d counts for %d colors", u.Name, len(u.Counts), len(u.Colors))
	}
	sum := 0
	for _, n := range u.Counts {
		if n < 0 {
			return errors.ValidationErrorf(errors.ErrUrnInvalid, "urn %s: negative count", u.Name)
		}
		sum += n
	}
	if sum != u.Size {
		return errors.ValidationErrorf(errors.ErrUrnInvalid,
			"urn %s: counts sum to %d, size is %d", u.Name, sum, u.Size)
	}
	return nil
}

// Instruction returns the sentence shown under the urn, where label is the
// caption the participant sees (e.g. "Urn A").
func (u *Urn) Instruction(label string) string {
	if u.Kind == KindRandom {
		return fmt.Sprintf("%[1]s contains %[2]d marbles in an unknown color ratio.\n"+
			"The mixture of marbles in %[1]s is decided by\n"+
			"the computer programming randomly.\n"+
			"Every possible mixture in %[1]s is equally possible.", label, u.Size)
	}

	parts := make([]string, len(u.Colors))
	for i, color := range u.Colors {
		n := u.Counts[i]
		marble := "marbles"
		if n == 1 {
			marble = "marble"
		}
		parts[i] = strconv.Itoa(n) + " " + color + " " + marble
	}
	return label + " contains " + strings.Join(parts, ", ") + "."
}

// Draw draws one ball from the urn.
func (u *Urn) Draw(r *rand.Rand) (string, error) {
	return Draw(r, u.Colors, u.Counts)
}
