package list

import (
	"fmt"
	"io"
	"os"

	"hosttest/internal/filter"
	"hosttest/internal/loader"
	"hosttest/internal/suite"
	"hosttest/pkg/hosttest/core"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type ListCmd struct {
	Package string   `arg:"" name:"package-dir" help:"Directory of the package to list" type:"existingdir"`
	Filter  []string `short:"f" help:"Only list cases whose dotted name starts with one of these"`

	suite.Flags `embed:""`
}

func (cmd *ListCmd) Run(ctx suite.Context) error {
	log := ctx.Logger()

	pkg, err := cmd.Flags.Resolve(cmd.Package)
	if err != nil {
		return err
	}

	log.Infof("Listing test cases of '%s'", pkg.Name)

	ld := loader.New(pkg.Config.Deferred, log)
	discovered := ld.Discover(pkg.TestsPath(), pkg.Config.Pattern)
	defer ld.Purge(pkg.TestsPath())

	selected := filter.New(cmd.Filter).Apply(discovered)
	log.Infof("Selected %d of %d test cases", selected.CountCases(), discovered.CountCases())

	printTable(os.Stdout, pkg.Name, selected)
	return nil
}

type row struct {
	name string
	kind string
	mode string
}

func collect(s *core.Suite, prefix string, rows []row) []row {
	for _, t := range s.Tests() {
		name := prefix + "." + t.Name()

		if sub, ok := t.(*core.Suite); ok {
			rows = collect(sub, name, rows)
			continue
		}

		kind := "sync"
		if core.IsDeferrable(t) {
			kind = "deferrable"
		}

		mode := "-"
		if moded, ok := t.(core.Moded); ok {
			mode = moded.Mode().String()
		}

		rows = append(rows, row{name: name, kind: kind, mode: mode})
	}
	return rows
}

func printTable(w io.Writer, title string, s *core.Suite) {
	rows := collect(s, s.Name(), nil)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Case", "Kind", "Mode"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Case", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
	})

	deferrable := 0
	for i, r := range rows {
		if r.kind == "deferrable" {
			deferrable++
		}
		t.AppendRow(table.Row{i + 1, r.name, r.kind, r.mode})
	}

	t.AppendFooter(table.Row{"", "TOTAL", fmt.Sprintf("%d deferrable", deferrable), len(rows)})
	t.SetStyle(table.StyleLight)
	t.Render()
}
