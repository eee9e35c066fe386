package widget

import (
	"strconv"

	"gopkg.in/yaml.v3"
	"hermannm.dev/enumnames"
)

type Type int8

const (
	TypeChart Type = iota + 1
	TypePivot
	TypeTable
	TypeCard
	TypeGauge
	TypeSlicer
)

var typeNames = enumnames.NewMap(map[Type]string{
	TypeChart:  "chart",
	TypePivot:  "pivot",
	TypeTable:  "table",
	TypeCard:   "card",
	TypeGauge:  "gauge",
	TypeSlicer: "slicer",
})

func (widgetType Type) IsValid() bool {
	return typeNames.ContainsEnumValue(widgetType)
}

func (widgetType Type) String() string {
	return typeNames.GetNameOrFallback(widgetType, "INVALID_WIDGET_TYPE")
}

func (widgetType Type) MarshalJSON() ([]byte, error) {
	return typeNames.MarshalToNameJSON(widgetType)
}

func (widgetType *Type) UnmarshalJSON(bytes []byte) error {
	return typeNames.UnmarshalFromNameJSON(bytes, widgetType)
}

func (widgetType *Type) UnmarshalYAML(node *yaml.Node) error {
	return widgetType.UnmarshalJSON([]byte(strconv.Quote(node.Value)))
}

// SortMode is how a widget asks for its categories to be ordered.
type SortMode int8

const (
	SortNone SortMode = iota + 1
	SortCategoryAscending
	SortCategoryDescending
	SortValueAscending
	SortValueDescending
)

var sortModeNames = enumnames.NewMap(map[SortMode]string{
	SortNone:               "none",
	SortCategoryAscending:  "category_asc",
	SortCategoryDescending: "category_desc",
	SortValueAscending:     "value_asc",
	SortValueDescending:    "value_desc",
})

func (sortMode SortMode) IsValid() bool {
	return sortModeNames.ContainsEnumValue(sortMode)
}

func (sortMode SortMode) String() string {
	return sortModeNames.GetNameOrFallback(sortMode, "INVALID_SORT_MODE")
}

func (sortMode SortMode) MarshalJSON() ([]byte, error) {
	return sortModeNames.MarshalToNameJSON(sortMode)
}

func (sortMode *SortMode) UnmarshalJSON(bytes []byte) error {
	return sortModeNames.UnmarshalFromNameJSON(bytes, sortMode)
}

func (sortMode *SortMode) UnmarshalYAML(node *yaml.Node) error {
	return sortMode.UnmarshalJSON([]byte(strconv.Quote(node.Value)))
}

type Operator int8

const (
	OperatorEquals Operator = iota + 1
	OperatorNotEquals
	OperatorIn
	OperatorNotIn
	OperatorGreaterThan
	OperatorGreaterThanOrEqual
	OperatorLessThan
	OperatorLessThanOrEqual
	OperatorBetween
	OperatorContains
	OperatorIsNull
	OperatorIsNotNull
)

var operatorNames = enumnames.NewMap(map[Operator]string{
	OperatorEquals:             "equals",
	OperatorNotEquals:          "notEquals",
	OperatorIn:                 "in",
	OperatorNotIn:              "notIn",
	OperatorGreaterThan:        "gt",
	OperatorGreaterThanOrEqual: "gte",
	OperatorLessThan:           "lt",
	OperatorLessThanOrEqual:    "lte",
	OperatorBetween:            "between",
	OperatorContains:           "contains",
	OperatorIsNull:             "isNull",
	OperatorIsNotNull:          "isNotNull",
})

func (operator Operator) IsValid() bool {
	return operatorNames.ContainsEnumValue(operator)
}

func (operator Operator) String() string {
	return operatorNames.GetNameOrFallback(operator, "INVALID_OPERATOR")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorNames.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorNames.UnmarshalFromNameJSON(bytes, operator)
}

func (operator *Operator) UnmarshalYAML(node *yaml.Node) error {
	return operator.UnmarshalJSON([]byte(strconv.Quote(node.Value)))
}
