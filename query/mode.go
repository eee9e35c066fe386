package query

import (
	"context"

	"hermannm.dev/enumnames"
	"hermannm.dev/widgetengine/value"
)

// Mode is where a plan's aggregation runs.
type Mode int8

const (
	ModeLocal Mode = iota + 1
	ModeRemote
)

var modeNames = enumnames.NewMap(map[Mode]string{
	ModeLocal:  "local",
	ModeRemote: "remote",
})

func (mode Mode) IsValid() bool {
	return modeNames.ContainsEnumValue(mode)
}

func (mode Mode) String() string {
	return modeNames.GetNameOrFallback(mode, "INVALID_MODE")
}

func (mode Mode) MarshalJSON() ([]byte, error) {
	return modeNames.MarshalToNameJSON(mode)
}

func (mode *Mode) UnmarshalJSON(bytes []byte) error {
	return modeNames.UnmarshalFromNameJSON(bytes, mode)
}

// RemoteExecutor runs plans on a SQL engine, returning one row per group keyed by dimension
// fields and measure keys.
type RemoteExecutor interface {
	// Supports returns a *ConfigError describing why the executor cannot run the plan, or nil.
	Supports(plan Plan) error
	Execute(ctx context.Context, plan Plan, table string) ([]value.Row, error)
}

// RowSource fetches the raw rows of a table for local execution.
type RowSource interface {
	FetchRows(ctx context.Context, table string) ([]value.Row, error)
}

// DecideMode picks local execution when raw rows are already at hand, or when there is no remote
// executor that accepts the plan, and remote execution otherwise.
func DecideMode(plan Plan, rawRowsAvailable bool, remote RemoteExecutor) Mode {
	if rawRowsAvailable || remote == nil {
		return ModeLocal
	}
	if err := remote.Supports(plan); err != nil {
		return ModeLocal
	}
	return ModeRemote
}
