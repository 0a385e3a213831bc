package persist

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
)

func sample() Session {
	return Session{
		Components: []Placement{
			{ComponentID: "R1", LibID: "Device:R", X: 100, Y: 50},
			{ComponentID: "LED1", LibID: "Device:LED", X: 300, Y: 50, Angle: 90},
		},
		Nets: []netlist.Net{{
			ID: "n1",
			Connections: []netlist.Connection{
				{ComponentID: "R1", PinNumber: "2"},
				{ComponentID: "LED1", PinNumber: "1"},
			},
		}},
	}
}

func TestJSONShape(t *testing.T) {
	data, err := JSON.Marshal(sample())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	nets := raw["nets"].([]any)
	net := nets[0].(map[string]any)
	assert.Equal(t, "n1", net["netId"])
	conn := net["connections"].([]any)[0].(map[string]any)
	assert.Equal(t, "R1", conn["componentId"])
	assert.Equal(t, "2", conn["pinNumber"])
}

func TestBareNetlistDecodes(t *testing.T) {
	doc := `{"nets":[{"netId":"x","connections":[{"componentId":"A","pinNumber":"1"},{"componentId":"B","pinNumber":"2"}]}]}`
	s, err := JSON.Unmarshal([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, s.Components)
	require.Len(t, s.Netlist().Nets, 1)
	assert.Equal(t, "B", s.Netlist().Nets[0].Connections[1].ComponentID)
}

func TestCodecsPreserveSession(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(sample())
			require.NoError(t, err)
			got, err := c.Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, sample(), got)
		})
	}
}

func TestCodecLookup(t *testing.T) {
	c, err := CodecFor("msgpack")
	require.NoError(t, err)
	assert.Equal(t, Msgpack, c)
	_, err = CodecFor("xml")
	assert.Error(t, err)

	assert.Equal(t, Msgpack, CodecForPath("a/b.msgpack"))
	assert.Equal(t, JSON, CodecForPath("a/b.json"))
	assert.Equal(t, JSON, CodecForPath("a/b"))
}

func TestFileStore(t *testing.T) {
	st, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"), Msgpack)
	require.NoError(t, err)

	require.NoError(t, st.Save("demo", sample()))
	require.NoError(t, st.Save("other", NewSession(nil, netlist.Snapshot{})))
	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"demo", "other"}, names)

	got, err := st.Load("demo")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	empty, err := st.Load("other")
	require.NoError(t, err)
	assert.Empty(t, empty.Nets)

	require.NoError(t, st.Delete("demo"))
	_, err = st.Load("demo")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Delete("demo"), ErrNotFound)
	assert.Error(t, st.Save("../escape", sample()))
}

func TestSaveFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, SaveFile(path, sample()))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}
