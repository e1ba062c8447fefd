package types

import (
	"strconv"

	"github.com/pkg/errors"
)

type KindType int

const (
	KindGrid KindType = iota
	KindFull
	KindCover
	KindSmallCover
	KindVideo
	KindInMap
	KindEmptyRollCover
)

// SpecialCoverBaseline marks covers of animated images, which are shown whole
// instead of cropped.
const SpecialCoverBaseline = -1

type ArtifactKind struct {
	Type     KindType
	Baseline int
}

func Grid() ArtifactKind              { return ArtifactKind{Type: KindGrid} }
func Full() ArtifactKind              { return ArtifactKind{Type: KindFull} }
func Cover(baseline int) ArtifactKind { return ArtifactKind{Type: KindCover, Baseline: baseline} }
func SmallCover(baseline int) ArtifactKind {
	return ArtifactKind{Type: KindSmallCover, Baseline: baseline}
}
func Video() ArtifactKind          { return ArtifactKind{Type: KindVideo} }
func InMap() ArtifactKind          { return ArtifactKind{Type: KindInMap} }
func EmptyRollCover() ArtifactKind { return ArtifactKind{Type: KindEmptyRollCover} }

func (k ArtifactKind) IsCover() bool {
	return k.Type == KindCover || k.Type == KindSmallCover
}

func (k ArtifactKind) Suffix() string {
	switch k.Type {
	case KindGrid:
		return "_view"
	case KindFull:
		return "_full"
	case KindCover:
		return "_cover"
	case KindSmallCover:
		return "_smallcover"
	case KindVideo:
		return "_video"
	case KindInMap:
		return "_map"
	case KindEmptyRollCover:
		return "empty"
	}
	return ""
}

func (k ArtifactKind) String() string {
	switch k.Type {
	case KindGrid:
		return "grid"
	case KindFull:
		return "full"
	case KindCover:
		return "cover"
	case KindSmallCover:
		return "small_cover"
	case KindVideo:
		return "video"
	case KindInMap:
		return "in_map"
	case KindEmptyRollCover:
		return "empty_roll_cover"
	}
	return "unknown"
}

// EffectiveKind is the kind the pipeline actually resolves: video media are
// always resolved as a video frame.
func EffectiveKind(ref MediaReference, kind ArtifactKind) ArtifactKind {
	if ref.IsVideo() && kind.Type != KindEmptyRollCover {
		return Video()
	}
	return kind
}

// CacheKey derives the artifact cache key. Cover keys carry the baseline so a
// re-cropped cover never hits a stale entry.
func CacheKey(ref MediaReference, kind ArtifactKind) string {
	kind = EffectiveKind(ref, kind)
	key := ref.Id + kind.Suffix()
	if kind.IsCover() {
		key = key + "-" + strconv.Itoa(kind.Baseline)
	}
	return key
}

// ParseKind is the inverse of String. The baseline only matters for covers.
func ParseKind(name string, baseline int) (ArtifactKind, error) {
	switch name {
	case "grid":
		return Grid(), nil
	case "full":
		return Full(), nil
	case "cover":
		return Cover(baseline), nil
	case "small_cover":
		return SmallCover(baseline), nil
	case "video":
		return Video(), nil
	case "in_map":
		return InMap(), nil
	case "empty_roll_cover":
		return EmptyRollCover(), nil
	}
	return ArtifactKind{}, errors.New("unknown artifact kind: " + name)
}
