package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// Snapshot is one archived read of a radio's channel memory
type Snapshot struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	Port         string          `gorm:"size:128" json:"port"`
	Label        string          `gorm:"size:128" json:"label"`
	ChannelCount int             `gorm:"not null;default:0" json:"channel_count"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	Channels     []ChannelRecord `gorm:"constraint:OnDelete:CASCADE" json:"channels,omitempty"`
}

// TableName specifies the table name for Snapshot
func (Snapshot) TableName() string {
	return "snapshots"
}

// BeforeCreate fills CreatedAt and ChannelCount
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.ChannelCount == 0 {
		s.ChannelCount = len(s.Channels)
	}
	return nil
}

// ChannelRecord is one channel slot inside a snapshot
type ChannelRecord struct {
	ID         uint   `gorm:"primarykey" json:"-"`
	SnapshotID uint   `gorm:"index;not null" json:"snapshot_id"`
	Index      uint16 `gorm:"column:channel_index;not null" json:"index"`
	RxMode     uint8  `json:"rx_mode"`
	TxMode     uint8  `json:"tx_mode"`
	RxFreqHz   uint32 `json:"rx_freq_hz"`
	TxFreqHz   uint32 `json:"tx_freq_hz"`
	RxCTCSS    uint8  `gorm:"column:rx_ctcss" json:"rx_ctcss"`
	TxCTCSS    uint8  `gorm:"column:tx_ctcss" json:"tx_ctcss"`
	Name       string `gorm:"size:16" json:"name"`
	RxCC       uint8  `gorm:"column:rx_cc" json:"rx_cc"`
	TxCC       uint8  `gorm:"column:tx_cc" json:"tx_cc"`
	Slot       uint8  `json:"slot"`
	OwnID      uint32 `json:"own_id"`
	CallID     uint32 `json:"call_id"`
	CallFormat uint8  `json:"call_format"`
}

// TableName specifies the table name for ChannelRecord
func (ChannelRecord) TableName() string {
	return "snapshot_channels"
}

// RecordFromChannel converts a channel for storage
func RecordFromChannel(c protocol.Channel) ChannelRecord {
	return ChannelRecord{
		Index:      c.Index,
		RxMode:     uint8(c.RxMode),
		TxMode:     uint8(c.TxMode),
		RxFreqHz:   c.RxFreqHz,
		TxFreqHz:   c.TxFreqHz,
		RxCTCSS:    c.RxCTCSS,
		TxCTCSS:    c.TxCTCSS,
		Name:       c.Name,
		RxCC:       c.RxCC,
		TxCC:       c.TxCC,
		Slot:       c.Slot,
		OwnID:      c.OwnID,
		CallID:     c.CallID,
		CallFormat: uint8(c.CallFormat),
	}
}

// Channel converts the stored record back to a channel
func (r ChannelRecord) Channel() protocol.Channel {
	return protocol.Channel{
		Index:      r.Index,
		RxMode:     protocol.Mode(r.RxMode),
		TxMode:     protocol.Mode(r.TxMode),
		RxFreqHz:   r.RxFreqHz,
		TxFreqHz:   r.TxFreqHz,
		RxCTCSS:    r.RxCTCSS,
		TxCTCSS:    r.TxCTCSS,
		Name:       r.Name,
		RxCC:       r.RxCC,
		TxCC:       r.TxCC,
		Slot:       r.Slot,
		OwnID:      r.OwnID,
		CallID:     r.CallID,
		CallFormat: protocol.CallFormat(r.CallFormat),
	}
}

// NewSnapshot builds a snapshot from channels read off a radio
func NewSnapshot(port, label string, channels []protocol.Channel) *Snapshot {
	s := &Snapshot{Port: port, Label: label, ChannelCount: len(channels)}
	s.Channels = make([]ChannelRecord, 0, len(channels))
	for _, c := range channels {
		s.Channels = append(s.Channels, RecordFromChannel(c))
	}
	return s
}

// ProtocolChannels returns the snapshot content as channels
func (s *Snapshot) ProtocolChannels() []protocol.Channel {
	out := make([]protocol.Channel, 0, len(s.Channels))
	for _, r := range s.Channels {
		out = append(out, r.Channel())
	}
	return out
}
