package quickcalc

import (
	"strconv"

	"gopkg.in/yaml.v3"
	"hermannm.dev/enumnames"
)

type Kind int8

const (
	KindPercentOfTotal Kind = iota + 1
	KindRunningTotal
	KindMovingAverage
	KindYearOverYear
	KindDifference
	KindPercentChange
)

var kindNames = enumnames.NewMap(map[Kind]string{
	KindPercentOfTotal: "percentOfTotal",
	KindRunningTotal:   "runningTotal",
	KindMovingAverage:  "movingAverage",
	KindYearOverYear:   "yearOverYear",
	KindDifference:     "difference",
	KindPercentChange:  "percentChange",
})

func (kind Kind) IsValid() bool {
	return kindNames.ContainsEnumValue(kind)
}

func (kind Kind) String() string {
	return kindNames.GetNameOrFallback(kind, "INVALID_QUICK_CALCULATION")
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
