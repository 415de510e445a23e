package option

import (
	"bytes"
	"strings"

	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/json"
	"github.com/sagernet/sing/common/json/badoption"
)

type _Options struct {
	Log         *LogOptions         `json:"log,omitempty"`
	Storage     *StorageOptions     `json:"storage,omitempty"`
	Puzzles     *PuzzlesOptions     `json:"puzzles,omitempty"`
	Multiplayer *MultiplayerOptions `json:"multiplayer,omitempty"`
	API         *APIOptions         `json:"api,omitempty"`
}

type Options _Options

func (o *Options) UnmarshalJSON(content []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	err := decoder.Decode((*_Options)(o))
	if err == nil {
		return nil
	}
	if syntaxError, isSyntaxError := err.(*json.SyntaxError); isSyntaxError {
		prefix := string(content[:syntaxError.Offset])
		row := strings.Count(prefix, "\n") + 1
		column := len(prefix) - strings.LastIndex(prefix, "\n") - 1
		return E.Extend(syntaxError, "row ", row, ", column ", column)
	}
	return err
}

type LogOptions struct {
	Disabled     bool   `json:"disabled,omitempty"`
	Level        string `json:"level,omitempty"`
	Output       string `json:"output,omitempty"`
	Timestamp    bool   `json:"timestamp,omitempty"`
	DisableColor bool   `json:"-"`
}

type StorageOptions struct {
	Path string `json:"path,omitempty"`
}

type PuzzlesOptions struct {
	Sizes        badoption.Listable[int]    `json:"sizes,omitempty"`
	Difficulties badoption.Listable[string] `json:"difficulties,omitempty"`
	PoolSize     int                        `json:"pool_size,omitempty"`
	PoolTTL      badoption.Duration         `json:"pool_ttl,omitempty"`
	Seed         int64                      `json:"seed,omitempty"`
}

type MultiplayerOptions struct {
	CompletedRoomGrace badoption.Duration `json:"completed_room_grace,omitempty"`
}

type APIOptions struct {
	Listen string             `json:"listen,omitempty"`
	Secret string             `json:"secret,omitempty"`
	TLS    *InboundTLSOptions `json:"tls,omitempty"`
}
