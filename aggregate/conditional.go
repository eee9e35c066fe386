package aggregate

// ConditionalRule highlights pivot cells whose value satisfies a comparison, e.g.
// {Operator: ">", Value: 1000, Color: "#d4f7d4"}. "between" uses Value and Value2 inclusively.
type ConditionalRule struct {
	Operator string  `json:"operator" yaml:"operator"`
	Value    float64 `json:"value" yaml:"value"`
	Value2   float64 `json:"value2,omitempty" yaml:"value2,omitempty"`
	Color    string  `json:"color" yaml:"color"`
}

func (rule ConditionalRule) Matches(number float64) bool {
	switch rule.Operator {
	case ">", "gt":
		return number > rule.Value
	case ">=", "gte":
		return number >= rule.Value
	case "<", "lt":
		return number < rule.Value
	case "<=", "lte":
		return number <= rule.Value
	case "=", "==", "equals":
		return number == rule.Value
	case "!=", "notEquals":
		return number != rule.Value
	case "between":
		return number >= rule.Value && number <= rule.Value2
	default:
		return false
	}
}

// Highlight returns the color of the first matching rule, or "" if none match.
func (config ValueConfig) Highlight(number float64) string {
	for _, rule := range config.ConditionalFormatting {
		if rule.Matches(number) {
			return rule.Color
		}
	}
	return ""
}

// ApplyConditionalFormatting fills Highlights from the conditional formatting of each value.
// Totals are not highlighted.
func (result *PivotResult) ApplyConditionalFormatting() {
	result.Highlights = nil
	for _, config := range result.Values {
		if len(config.ConditionalFormatting) == 0 {
			continue
		}
		key := config.Key()

		for rowKey, cells := range result.Data {
			for columnKey, measures := range cells {
				number, ok := measures[key]
				if !ok {
					continue
				}
				color := config.Highlight(number)
				if color == "" {
					continue
				}

				if result.Highlights == nil {
					result.Highlights = make(map[string]map[string]map[string]string)
				}
				if result.Highlights[rowKey] == nil {
					result.Highlights[rowKey] = make(map[string]map[string]string)
				}
				if result.Highlights[rowKey][columnKey] == nil {
					result.Highlights[rowKey][columnKey] = make(map[string]string)
				}
				result.Highlights[rowKey][columnKey][key] = color
			}
		}
	}
}
