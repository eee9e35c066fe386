package fields

import (
	"strconv"

	"hermannm.dev/enumnames"
)

// Level is a date-hierarchy level that can be derived from a date field, written as a suffix on
// the field token: "OrderDate___quarter".
type Level int8

const (
	LevelYear Level = iota + 1
	LevelHalf
	LevelQuarter
	LevelMonth
	LevelDay
)

var levelNames = enumnames.NewMap(map[Level]string{
	LevelYear:    "year",
	LevelHalf:    "half",
	LevelQuarter: "quarter",
	LevelMonth:   "month",
	LevelDay:     "day",
})

func ParseLevel(name string) (level Level, ok bool) {
	if err := levelNames.UnmarshalFromNameJSON([]byte(strconv.Quote(name)), &level); err != nil {
		return 0, false
	}
	return level, true
}

func (level Level) IsValid() bool {
	return levelNames.ContainsEnumValue(level)
}

func (level Level) String() string {
	return levelNames.GetNameOrFallback(level, "INVALID_LEVEL")
}

func (level Level) MarshalJSON() ([]byte, error) {
	return levelNames.MarshalToNameJSON(level)
}

func (level *Level) UnmarshalJSON(bytes []byte) error {
	return levelNames.UnmarshalFromNameJSON(bytes, level)
}
