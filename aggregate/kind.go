package aggregate

import (
	"strconv"

	"gopkg.in/yaml.v3"
	"hermannm.dev/enumnames"
)

type Kind int8

const (
	KindSum Kind = iota + 1
	KindAverage
	KindMin
	KindMax
	KindCount
	KindCountDistinct
	KindNone
)

var kindNames = enumnames.NewMap(map[Kind]string{
	KindSum:           "sum",
	KindAverage:       "avg",
	KindMin:           "min",
	KindMax:           "max",
	KindCount:         "count",
	KindCountDistinct: "countDistinct",
	KindNone:          "none",
})

func ParseKind(name string) (kind Kind, ok bool) {
	if err := kindNames.UnmarshalFromNameJSON([]byte(strconv.Quote(name)), &kind); err != nil {
		return 0, false
	}
	return kind, true
}

func (kind Kind) IsValid() bool {
	return kindNames.ContainsEnumValue(kind)
}

func (kind Kind) String() string {
	return kindNames.GetNameOrFallback(kind, "INVALID_AGGREGATION")
}

func (kind Kind) MarshalJSON() ([]byte, error) {
	return kindNames.MarshalToNameJSON(kind)
}

func (kind *Kind) UnmarshalJSON(bytes []byte) error {
	return kindNames.UnmarshalFromNameJSON(bytes, kind)
}

func (kind Kind) MarshalYAML() (any, error) {
	return kind.String(), nil
}

func (kind *Kind) UnmarshalYAML(node *yaml.Node) error {
	return kind.UnmarshalJSON([]byte(strconv.Quote(node.Value)))
}

// Reaggregation gives the kind that combines partial results of this kind into a total, e.g.
// summing per-group counts. Averages, distinct counts and "none" cannot be combined that way;
// their totals must be computed from the underlying rows.
func Reaggregation(kind Kind) (Kind, bool) {
	switch kind {
	case KindSum, KindCount:
		return KindSum, true
	case KindMin:
		return KindMin, true
	case KindMax:
		return KindMax, true
	default:
		return 0, false
	}
}
