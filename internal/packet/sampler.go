package packet

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	textMinMB    = 0.05
	textMaxMB    = 0.20
	videoMeanMB  = 6.0
	videoSDMB    = 1.0
	imageSigma   = 0.5
	minVideoMB   = 0.001
	weightSumTol = 1e-6
)

// ErrInvalidMix is returned when the configured type mix cannot be sampled.
var ErrInvalidMix = errors.New("invalid packet type mix")

// Sampler draws packet profiles from a categorical type mix. All randomness
// comes from the source passed to NewSampler, so a fixed seed yields a fixed
// sequence of profiles.
type Sampler struct {
	types      []Type
	priorities map[Type]int
	category   distuv.Categorical
	text       distuv.Uniform
	image      distuv.LogNormal
	video      distuv.Normal
}

// NewSampler validates the mix and priority map and builds a sampler.
func NewSampler(mix []TypeWeight, priorities map[Type]int, src rand.Source) (*Sampler, error) {
	if len(mix) == 0 {
		return nil, fmt.Errorf("%w: no packet types", ErrInvalidMix)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidMix)
	}
	types := make([]Type, len(mix))
	weights := make([]float64, len(mix))
	seen := make(map[Type]bool, len(mix))
	sum := 0.0
	for i, tw := range mix {
		switch tw.Type {
		case TypeText, TypeImage, TypeVideo:
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMix, tw.Type)
		}
		if seen[tw.Type] {
			return nil, fmt.Errorf("%w: type %q listed twice", ErrInvalidMix, tw.Type)
		}
		seen[tw.Type] = true
		if tw.Weight < 0 || math.IsNaN(tw.Weight) {
			return nil, fmt.Errorf("%w: weight for %q is %v", ErrInvalidMix, tw.Type, tw.Weight)
		}
		if _, ok := priorities[tw.Type]; !ok {
			return nil, fmt.Errorf("%w: no priority for %q", ErrInvalidMix, tw.Type)
		}
		types[i] = tw.Type
		weights[i] = tw.Weight
		sum += tw.Weight
	}
	if math.Abs(sum-1) > weightSumTol {
		return nil, fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidMix, sum)
	}

	prio := make(map[Type]int, len(priorities))
	for k, v := range priorities {
		prio[k] = v
	}
	return &Sampler{
		types:      types,
		priorities: prio,
		category:   distuv.NewCategorical(weights, src),
		text:       distuv.Uniform{Min: textMinMB, Max: textMaxMB, Src: src},
		image:      distuv.LogNormal{Mu: math.Log(1), Sigma: imageSigma, Src: src},
		video:      distuv.Normal{Mu: videoMeanMB, Sigma: videoSDMB, Src: src},
	}, nil
}

// Types returns the configured labels in configuration order.
func (s *Sampler) Types() []Type {
	out := make([]Type, len(s.types))
	copy(out, s.types)
	return out
}

// Sample draws one packet profile.
func (s *Sampler) Sample() Profile {
	t := s.types[int(s.category.Rand())]
	return Profile{
		Type:     t,
		SizeMB:   s.size(t),
		Priority: s.priorities[t],
	}
}

func (s *Sampler) size(t Type) float64 {
	switch t {
	case TypeText:
		return s.text.Rand()
	case TypeImage:
		return s.image.Rand()
	default:
		// clamp, not resample
		return math.Max(minVideoMB, s.video.Rand())
	}
}
