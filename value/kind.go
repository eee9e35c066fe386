package value

import "hermannm.dev/enumnames"

type Kind int8

const (
	KindNull Kind = iota + 1
	KindNumber
	KindString
	KindBool
	KindDate
)

var kindNames = enumnames.NewMap(map[Kind]string{
	KindNull:   "NULL",
	KindNumber: "NUMBER",
	KindString: "STRING",
	KindBool:   "BOOL",
	KindDate:   "DATE",
})

func (kind Kind) IsValid() bool {
	return kindNames.ContainsEnumValue(kind)
}

func (kind Kind) String() string {
	return kindNames.GetNameOrFallback(kind, "INVALID_KIND")
}

func (kind Kind) MarshalJSON() ([]byte, error) {
	return kindNames.MarshalToNameJSON(kind)
}

func (kind *Kind) UnmarshalJSON(bytes []byte) error {
	return kindNames.UnmarshalFromNameJSON(bytes, kind)
}
