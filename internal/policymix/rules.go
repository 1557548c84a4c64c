package policymix

import (
	"fmt"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"

	"github.com/samber/lo"
)

// dimension holds the values one attribute is matched and excluded against
type dimension[T comparable] struct {
	match   []T
	exclude []T
}

func (d dimension[T]) empty() bool {
	return len(d.match) == 0 && len(d.exclude) == 0
}

// allows is true when v is not excluded and either no match value is
// declared or v equals one of them
func (d dimension[T]) allows(v T) bool {
	if lo.Contains(d.exclude, v) {
		return false
	}
	return len(d.match) == 0 || lo.Contains(d.match, v)
}

func (d *dimension[T]) add(v T, exclude bool) {
	if exclude {
		d.exclude = append(d.exclude, v)
		return
	}
	d.match = append(d.match, v)
}

// compiledRules is the criteria list of a mix grouped by dimension
type compiledRules struct {
	usages  dimension[audio.Usage]
	sources dimension[audio.Source]
	uids    dimension[audio.UID]
}

func compileRules(mix Mix) (compiledRules, error) {
	var rules compiledRules
	for i, c := range mix.Criteria {
		exclude := c.Rule.IsExclusion()
		switch c.Rule &^ RuleExclusionMask {
		case RuleMatchUsage:
			if mix.Type != MixTypePlayers {
				return rules, criterionError(i, c, "usage rules apply to players mixes")
			}
			rules.usages.add(c.Usage, exclude)
		case RuleMatchCapturePreset:
			if mix.Type != MixTypeRecorders {
				return rules, criterionError(i, c, "capture preset rules apply to recorders mixes")
			}
			rules.sources.add(c.Source, exclude)
		case RuleMatchUID:
			rules.uids.add(c.UID, exclude)
		default:
			return rules, criterionError(i, c, "unknown rule")
		}
	}
	return rules, nil
}

func criterionError(i int, c Criterion, reason string) error {
	return errors.InvalidArgumentError(fmt.Sprintf("criterion %d (%s): %s", i, c.Rule, reason), ErrInvalidCriterion)
}

// matchesPlayback evaluates usage and uid rules. Dimensions are combined with
// AND; a mix without any criterion never matches by attributes.
func (r compiledRules) matchesPlayback(usage audio.Usage, uid audio.UID) bool {
	if r.usages.empty() && r.uids.empty() {
		return false
	}
	return r.usages.allows(usage) && r.uids.allows(uid)
}

// matchesCapture evaluates capture preset and uid rules
func (r compiledRules) matchesCapture(source audio.Source, uid audio.UID) bool {
	if r.sources.empty() && r.uids.empty() {
		return false
	}
	return r.sources.allows(source) && r.uids.allows(uid)
}
