package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"sveltec-go/packages/runtime/bench"
)

func renderStats(w io.Writer, units []*compiled) {
	tbl := table.NewWriter()
	tbl.SetTitle("Components")
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"component", "blocks", "deps", "ctx slots", "warnings", "js", "css"})
	var blocks, deps, slots int
	var size uint64
	for _, u := range units {
		if u.err != nil {
			tbl.AppendRow(table.Row{u.name, "-", "-", "-", "-", "failed", "-"})
			continue
		}
		st := u.result.Stats
		blocks += st.Blocks
		deps += st.Dependencies
		slots += st.ContextSlots
		size += uint64(len(u.result.JS) + len(u.result.CSS))
		css := "-"
		if u.result.CSS != "" {
			css = humanize.Bytes(uint64(len(u.result.CSS)))
		}
		tbl.AppendRow(table.Row{
			u.name,
			st.Blocks,
			st.Dependencies,
			st.ContextSlots,
			len(u.result.Warnings),
			humanize.Bytes(uint64(len(u.result.JS))),
			css,
		})
	}
	tbl.AppendFooter(table.Row{"total", blocks, deps, slots, "", humanize.Bytes(size), ""})
	tbl.Render()
}

func renderBench(w io.Writer, cfg bench.Config, results []*bench.Result) {
	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("Keyed each: %s rows", humanize.Comma(int64(cfg.Size))))
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"scenario", "avg", "min", "p75", "p99", "max", "created", "moved", "destroyed", "dom moves"})
	for _, r := range results {
		calc := r.Metrics
		tbl.AppendRow(table.Row{
			r.Scenario,
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
			humanize.Comma(int64(r.Created)),
			humanize.Comma(int64(r.Moved)),
			humanize.Comma(int64(r.Destroyed)),
			humanize.Comma(int64(r.DOM.Moves)),
		})
	}
	tbl.Render()
}
