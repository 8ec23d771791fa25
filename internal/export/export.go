// Package export renders enriched channel history as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/triage"
)

var baseColumns = []string{
	"channel",
	"ts",
	"type",
	"subtype",
	"user",
	"team",
	"text",
	"reactions",
	"posted_by_automation",
	"all_reactions",
	"threaded_reply_count",
	"threaded_reply_users_count",
}

// ToCSV renders msgs with the columns for mode. It returns "" if any row
// fails to serialize.
func ToCSV(msgs []triage.EnrichedMessage, mode triage.Mode, tax *taxonomy.Config) string {
	var buf bytes.Buffer
	if err := Write(&buf, msgs, mode, tax); err != nil {
		return ""
	}
	return buf.String()
}

// Write streams the CSV for msgs to w, header row first.
func Write(w io.Writer, msgs []triage.EnrichedMessage, mode triage.Mode, tax *taxonomy.Config) error {
	cols := columnsFor(msgs, mode, tax)
	out := gocsv.NewSafeCSVWriter(csv.NewWriter(w))

	if err := out.Write(cols.header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range msgs {
		row, err := cols.row(&msgs[i])
		if err != nil {
			return fmt.Errorf("row %d (ts %s): %w", i, msgs[i].TS, err)
		}
		if err := out.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// columns is the mode-specific column layout, resolved once per export.
type columns struct {
	mode      triage.Mode
	levels    []taxonomy.Level
	statuses  []taxonomy.Status
	reactions []string
}

func columnsFor(msgs []triage.EnrichedMessage, mode triage.Mode, tax *taxonomy.Config) columns {
	c := columns{mode: mode}
	switch mode {
	case triage.ModeTriage:
		if tax != nil {
			c.levels = tax.Levels()
			c.statuses = tax.Statuses()
		}
	case triage.ModeGeneric:
		c.reactions = triage.ReactionNames(msgs)
	}
	return c
}

func (c columns) header() []string {
	h := append([]string(nil), baseColumns...)
	switch c.mode {
	case triage.ModeTriage:
		h = append(h, "levels", "statuses")
		for _, l := range c.levels {
			h = append(h, "level_"+string(l))
		}
		for _, s := range c.statuses {
			h = append(h, "status_"+string(s))
		}
	case triage.ModeGeneric:
		for _, name := range c.reactions {
			h = append(h, "reacted_with_count_"+name)
		}
	}
	return h
}

func (c columns) row(m *triage.EnrichedMessage) ([]string, error) {
	reactions, err := jsonCell(m.Reactions)
	if err != nil {
		return nil, err
	}
	all, err := jsonCell(m.AllReactions)
	if err != nil {
		return nil, err
	}

	r := []string{
		m.Channel.ID,
		m.TS,
		m.Type,
		m.SubType,
		m.User,
		m.Team,
		m.Text,
		reactions,
		strconv.FormatBool(m.PostedByAutomation),
		all,
		strconv.Itoa(m.ThreadedReplyCount),
		strconv.Itoa(m.ThreadedReplyUsersCount),
	}

	switch c.mode {
	case triage.ModeTriage:
		levels, err := jsonCell(m.Levels)
		if err != nil {
			return nil, err
		}
		statuses, err := jsonCell(m.Statuses)
		if err != nil {
			return nil, err
		}
		r = append(r, levels, statuses)
		for _, l := range c.levels {
			r = append(r, strconv.FormatBool(m.HasLevel(l)))
		}
		for _, s := range c.statuses {
			r = append(r, strconv.FormatBool(m.HasStatus(s)))
		}
	case triage.ModeGeneric:
		for _, name := range c.reactions {
			n, ok := m.ReactionCounts[name]
			if !ok {
				r = append(r, "")
				continue
			}
			r = append(r, strconv.Itoa(n))
		}
	}
	return r, nil
}

// jsonCell encodes list-valued fields; empty lists render as an empty cell.
func jsonCell[T any](v []T) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
