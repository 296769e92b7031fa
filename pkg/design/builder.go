package design

import (
	"math/rand/v2"

	"github.com/r3d91ll/urnlab/pkg/config"
	"github.com/r3d91ll/urnlab/pkg/errors"
	"github.com/r3d91ll/urnlab/pkg/urn"
)

// Plan is everything decided for one participant before the first screen.
type Plan struct {
	Mode Mode `json:"mode"`

	// All holds every configured condition with freshly built urns.
	All []*Condition `json:"conditions"`

	// Active holds the conditions this participant sees.
	Active []*Condition `json:"-"`

	// Index is the between-subject assignment, or -1 for within-subject runs.
	Index int `json:"assignment_index"`

	// Trials is Active in presentation order.
	Trials []Trial `json:"trials"`

	// BallImages maps each ball color to the image shown after a draw.
	BallImages map[string]string `json:"ball_images,omitempty"`
}

// Slots returns the number of trial slots in a ledger row for this plan.
func (p *Plan) Slots() int {
	return SlotsPerParticipant(p.Mode, len(p.All))
}

// Build creates urns and conditions from cfg, assigns conditions using the
// number of participants already recorded, and orders the trials.
//
// Random urns are sampled here, so every call yields new hidden mixtures.
// Each condition's urns are shuffled once to randomize their positions.
func Build(cfg *config.Config, r *rand.Rand, existing int) (*Plan, error) {
	mode := Mode(cfg.Experiment.Design)
	if !mode.IsValid() {
		return nil, errors.ValidationErrorf(errors.ErrConfigInvalid, "unknown design %q", cfg.Experiment.Design).
			WithSuggestion("Set experiment.design to 'between' or 'within'")
	}

	image := cfg.UrnImagePath()
	balls := make(map[string]string)
	all := make([]*Condition, 0, len(cfg.Experiment.Conditions))
	for _, cc := range cfg.Experiment.Conditions {
		urns := make([]*urn.Urn, 0, len(cc.Urns))
		for _, uc := range cc.Urns {
			for _, color := range uc.Colors {
				balls[color] = cfg.BallImagePath(color)
			}
			u, err := buildUrn(r, uc, image)
			if err != nil {
				if e, ok := errors.As(err); ok {
					e.WithContext("condition", cc.Name)
				}
				return nil, err
			}
			urns = append(urns, u)
		}
		r.Shuffle(len(urns), func(i, j int) {
			urns[i], urns[j] = urns[j], urns[i]
		})
		all = append(all, NewCondition(cc.Name, urns))
	}

	active, index := Assign(mode, all, existing)
	return &Plan{
		Mode:       mode,
		All:        all,
		Active:     active,
		Index:      index,
		Trials:     Sequence(r, active, GeometryFrom(cfg.Experiment.Geometry)),
		BallImages: balls,
	}, nil
}

func buildUrn(r *rand.Rand, uc config.UrnConfig, image string) (*urn.Urn, error) {
	switch urn.Kind(uc.Kind) {
	case urn.KindFixed:
		return urn.NewFixed(uc.Name, uc.Colors, uc.Counts, image)
	case urn.KindRandom:
		return urn.NewRandom(r, uc.Name, uc.Colors, uc.Size, image)
	default:
		return nil, errors.ValidationErrorf(errors.ErrUrnInvalid, "urn %s has unknown kind %q", uc.Name, uc.Kind)
	}
}
