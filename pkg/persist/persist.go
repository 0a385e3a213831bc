// Package persist encodes editing sessions and keeps them on disk.
//
// A Session is the netlist snapshot plus the component placements needed to
// rebuild the canvas. Its "nets" key has exactly the netlist snapshot shape,
// so a bare netlist document decodes as a Session without components.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
)

// ErrNotFound is returned when a stored session does not exist.
var ErrNotFound = errors.New("persist: session not found")

// Placement is one component instance on the canvas.
type Placement struct {
	ComponentID string  `json:"componentId" msgpack:"componentId" yaml:"componentId"`
	LibID       string  `json:"libId" msgpack:"libId" yaml:"libId"`
	X           float64 `json:"x" msgpack:"x" yaml:"x"`
	Y           float64 `json:"y" msgpack:"y" yaml:"y"`
	Angle       float64 `json:"angle,omitempty" msgpack:"angle,omitempty" yaml:"angle,omitempty"`
	MirrorX     bool    `json:"mirrorX,omitempty" msgpack:"mirrorX,omitempty" yaml:"mirrorX,omitempty"`
	MirrorY     bool    `json:"mirrorY,omitempty" msgpack:"mirrorY,omitempty" yaml:"mirrorY,omitempty"`
}

// Session is a saved editing session.
type Session struct {
	Components []Placement   `json:"components,omitempty" msgpack:"components,omitempty"`
	Nets       []netlist.Net `json:"nets" msgpack:"nets"`
}

// NewSession pairs placements with a netlist snapshot.
func NewSession(components []Placement, s netlist.Snapshot) Session {
	nets := s.Nets
	if nets == nil {
		nets = []netlist.Net{}
	}
	return Session{Components: components, Nets: nets}
}

// Netlist returns the snapshot part of the session.
func (s Session) Netlist() netlist.Snapshot {
	return netlist.Snapshot{Nets: s.Nets}
}

// Codec turns sessions into bytes and back.
type Codec interface {
	Name() string
	Ext() string
	Marshal(Session) ([]byte, error)
	Unmarshal([]byte) (Session, error)
}

var (
	// JSON is the interchange format shared with canvas front-ends.
	JSON Codec = jsonCodec{}
	// Msgpack is the compact binary format.
	Msgpack Codec = msgpackCodec{}
)

// CodecFor returns the codec called name.
func CodecFor(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return JSON, nil
	case "msgpack", "mp":
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("persist: unknown format %q", name)
	}
}

// CodecForPath picks a codec from a file extension. Unknown extensions are JSON.
func CodecForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case Msgpack.Ext(), ".mp":
		return Msgpack
	default:
		return JSON
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Ext() string  { return ".json" }

func (jsonCodec) Marshal(s Session) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persist: encode json: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte) (Session, error) {
	var s Session
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return Session{}, fmt.Errorf("persist: decode json: %w", err)
	}
	return s, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Ext() string  { return ".msgpack" }

func (msgpackCodec) Marshal(s Session) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("persist: encode msgpack: %w", err)
	}
	return data, nil
}

func (msgpackCodec) Unmarshal(data []byte) (Session, error) {
	var s Session
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("persist: decode msgpack: %w", err)
	}
	return s, nil
}
