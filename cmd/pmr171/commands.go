package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dbehnke/pmr171-cps/pkg/codeplug"
	"github.com/dbehnke/pmr171-cps/pkg/database"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
	"github.com/dbehnke/pmr171-cps/pkg/radio"
)

// batchOptions builds progress reporting for op, printed to stderr and
// forwarded to MQTT when enabled
func (a *app) batchOptions(ctx context.Context, op string) radio.BatchOptions {
	var publish radio.ProgressFunc
	if a.publisher != nil {
		publish = a.publisher.Progress(op)
	}

	return radio.BatchOptions{
		Cancel:    radio.CancelOnDone(ctx),
		SkipEmpty: a.opts.skipEmpty,
		Progress: func(current, total int, message string) {
			fmt.Fprintf(os.Stderr, "\r[%4d/%d] %-48s", current, total, message)
			if publish != nil {
				publish(current, total, message)
			}
		},
	}
}

func (a *app) read(ctx context.Context) error {
	var indices []uint16
	if a.opts.channels != "" {
		var err error
		if indices, err = parseChannels(a.opts.channels); err != nil {
			return err
		}
	}

	session, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	opts := a.batchOptions(ctx, "read")
	var channels []protocol.Channel
	if indices != nil {
		channels = session.ReadSelected(indices, opts)
	} else {
		channels = session.ReadAll(opts)
	}
	fmt.Fprintln(os.Stderr)

	if ctx.Err() != nil {
		a.log.Warn("Read cancelled, saving partial result", logger.Int("channels", len(channels)))
	}

	a.archive(session.Port(), labelOr(a.opts.label, "read"), channels)

	if err := codeplug.Save(a.opts.output, codeplug.FromChannels(channels)); err != nil {
		return err
	}
	fmt.Printf("Read %d channels into %s\n", len(channels), a.opts.output)
	return nil
}

func (a *app) write(ctx context.Context) error {
	if a.opts.input == "" {
		return fmt.Errorf("write needs a codeplug file (use --input)")
	}
	cp, err := codeplug.Load(a.opts.input)
	if err != nil {
		return err
	}
	channels := cp.Channels()
	if len(channels) == 0 {
		fmt.Println("Codeplug is empty, nothing to write")
		return nil
	}

	session, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	// Keep the slots about to be overwritten
	if a.db != nil && !a.opts.noBackup {
		indices := make([]uint16, len(channels))
		for i, ch := range channels {
			indices[i] = ch.Index
		}
		backup := session.ReadSelected(indices, a.batchOptions(ctx, "backup"))
		fmt.Fprintln(os.Stderr)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.archive(session.Port(), "before write "+a.opts.input, backup)
	}

	written, err := session.WriteCodeplug(cp, a.batchOptions(ctx, "write"))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d of %d channels\n", written, len(channels))
	if written != len(channels) {
		return fmt.Errorf("%d channels were not written", len(channels)-written)
	}
	return nil
}

func (a *app) info() error {
	session, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	info, err := session.RadioInfo()
	if err != nil {
		return err
	}
	fmt.Printf("Model:     %s\n", info.Model)
	fmt.Printf("Equipment: %s\n", hex.EncodeToString(info.Raw))

	status, err := session.Status()
	if err != nil {
		a.log.Warn("Status request failed", logger.Error(err))
		return nil
	}
	fmt.Printf("Status:    %s\n", hex.EncodeToString(status))
	return nil
}

func (a *app) snapshots() error {
	if a.db == nil {
		return fmt.Errorf("snapshots need the database (database.enabled)")
	}
	repo := a.db.Snapshots()

	if a.opts.snapshotID != 0 {
		snap, err := repo.Get(a.opts.snapshotID)
		if err != nil {
			return fmt.Errorf("snapshot %d: %w", a.opts.snapshotID, err)
		}
		if err := codeplug.Save(a.opts.output, codeplug.FromChannels(snap.ProtocolChannels())); err != nil {
			return err
		}
		fmt.Printf("Exported snapshot %d (%d channels) to %s\n", snap.ID, snap.ChannelCount, a.opts.output)
		return nil
	}

	list, err := repo.List(a.opts.limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No snapshots")
		return nil
	}
	for _, s := range list {
		fmt.Printf("%5d  %s  %-14s %4d  %s\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Port, s.ChannelCount, s.Label)
	}
	return nil
}

// archive stores channels as a snapshot; failures are logged only
func (a *app) archive(port, label string, channels []protocol.Channel) {
	if a.db == nil || len(channels) == 0 {
		return
	}
	snap := database.NewSnapshot(port, label, channels)
	if err := a.db.Snapshots().Create(snap); err != nil {
		a.log.Error("Failed to save snapshot", logger.Error(err))
		return
	}
	a.log.Info("Saved snapshot",
		logger.Int("id", int(snap.ID)),
		logger.Int("channels", snap.ChannelCount))
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

// parseChannels parses a list such as "0-15,100,200-201"
func parseChannels(s string) ([]uint16, error) {
	var out []uint16
	seen := make(map[uint16]bool)
	add := func(i int) {
		if !seen[uint16(i)] {
			seen[uint16(i)] = true
			out = append(out, uint16(i))
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseIndex(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parseIndex(hi); err != nil {
				return nil, err
			}
			if last < first {
				return nil, fmt.Errorf("invalid channel range %q", part)
			}
		}
		for i := first; i <= last; i++ {
			add(i)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no channels in %q", s)
	}
	return out, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid channel %q", s)
	}
	if i < 0 || i >= protocol.ChannelCount {
		return 0, fmt.Errorf("channel %d out of range 0-%d", i, protocol.ChannelCount-1)
	}
	return i, nil
}
