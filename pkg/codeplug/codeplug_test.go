package codeplug

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

func dmrChannel() protocol.Channel {
	ch := protocol.NewChannel(300)
	ch.RxMode = protocol.ModeDMR
	ch.TxMode = protocol.ModeDMR
	ch.RxFreqHz = 438_800_000
	ch.TxFreqHz = 431_200_000
	ch.Name = "REPEATER"
	ch.RxCC = 7
	ch.TxCC = 7
	ch.Slot = 2
	ch.CallID = 3100
	ch.OwnID = 3112345
	return ch
}

func TestFromChannelSplitsBytes(t *testing.T) {
	ch := protocol.NewChannel(5)
	ch.RxFreqHz = 446_000_000
	ch.TxFreqHz = 446_000_000
	ch.RxCTCSS = 13
	ch.TxCTCSS = 12
	ch.Name = "TEST_05"

	r := FromChannel(ch)

	assert.Equal(t, 5, r.ChannelLow)
	assert.Equal(t, 0, r.ChannelHigh)
	assert.Equal(t, "TEST_05", r.ChannelName)
	assert.Equal(t, int(protocol.ModeNFM), r.VfoaMode)
	assert.Equal(t, []int{0x1A, 0x95, 0x6B, 0x80},
		[]int{r.VfoaFrequency1, r.VfoaFrequency2, r.VfoaFrequency3, r.VfoaFrequency4})
	assert.Equal(t, 13, r.ReceiveYayin)
	assert.Equal(t, 12, r.EmitYayin)
	assert.Equal(t, IgnoredCTCSS, r.RxCtcss)
	assert.Equal(t, IgnoredCTCSS, r.TxCtcss)
	assert.Equal(t, DefaultPower, r.Power)
	assert.Equal(t, 0, r.ChType)
}

func TestFromChannelDMR(t *testing.T) {
	r := FromChannel(dmrChannel())

	assert.Equal(t, 300&0xFF, r.ChannelLow)
	assert.Equal(t, 1, r.ChannelHigh)
	assert.Equal(t, 1, r.ChType)
	assert.Equal(t, 2, r.Slot)
	assert.Equal(t, 7, r.RxCc)
	// 3100 = 0x00000C1C
	assert.Equal(t, []int{0, 0, 0x0C, 0x1C}, []int{r.CallID1, r.CallID2, r.CallID3, r.CallID4})
	// 3112345 = 0x002F7D99
	assert.Equal(t, []int{0, 0x2F, 0x7D, 0x99}, []int{r.OwnID1, r.OwnID2, r.OwnID3, r.OwnID4})
}

func TestRecordRoundTrip(t *testing.T) {
	ch := dmrChannel()
	assert.Equal(t, ch, FromChannel(ch).Channel())
}

func TestRecordIndexLegacyLayout(t *testing.T) {
	r := Record{ChannelLow: 300}
	assert.Equal(t, uint16(300), r.Index())
}

func TestUnmarshalDefaults(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"channelLow": 9, "channelName": "X"}`), &r))

	ch := r.Channel()
	assert.Equal(t, uint16(9), ch.Index)
	assert.Equal(t, protocol.ModeNFM, ch.RxMode)
	assert.Equal(t, protocol.ModeNFM, ch.TxMode)
	assert.Equal(t, uint8(1), ch.RxCC)
	assert.Equal(t, uint8(1), ch.TxCC)
	assert.Equal(t, uint8(1), ch.Slot)
	assert.Equal(t, protocol.CallFormatGroup, ch.CallFormat)
	assert.Zero(t, ch.RxFreqHz)
	assert.Zero(t, ch.CallID)
}

func TestUnmarshalExplicitZeroKept(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"callFormat": 0, "slot": 2}`), &r))
	assert.Equal(t, int(protocol.CallFormatPrivate), r.CallFormat)
	assert.Equal(t, 2, r.Slot)
}

func TestChannelsSorted(t *testing.T) {
	cp := FromChannels([]protocol.Channel{
		protocol.NewChannel(42),
		protocol.NewChannel(3),
		protocol.NewChannel(700),
	})
	require.Len(t, cp, 3)
	assert.Contains(t, cp, "700")

	var got []uint16
	for _, c := range cp.Channels() {
		got = append(got, c.Index)
	}
	assert.Equal(t, []uint16{3, 42, 700}, got)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codeplug.json")

	ch := protocol.NewChannel(1)
	ch.RxFreqHz = 145_500_000
	ch.TxFreqHz = 145_500_000
	ch.Name = "CALL"
	cp := FromChannels([]protocol.Channel{ch, dmrChannel()})

	require.NoError(t, Save(path, cp))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"vfoaFrequency1"`)
	assert.Contains(t, string(raw), "\n  ")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cp, loaded)
	assert.Equal(t, []protocol.Channel{ch, dmrChannel()}, loaded.Channels())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(empty, []byte("null"), 0o644))
	cp, err := Load(empty)
	require.NoError(t, err)
	assert.Empty(t, cp)
}
