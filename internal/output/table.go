package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spinframework/spin-cli/internal/plugin"
)

// TableFormatter renders the listing as a bordered table.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, descriptors []plugin.Descriptor) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Top: tw.On, Bottom: tw.On, Left: tw.On, Right: tw.On},
		}),
	)

	table.Header("Name", "Version", "Installed", "Compatibility")
	for _, d := range descriptors {
		installed := ""
		if d.Installed {
			installed = "yes"
		}
		compat := ""
		switch d.Compatibility.Kind {
		case plugin.IncompatibleSpin:
			compat = "requires Spin " + d.Compatibility.RequiredSpin
		case plugin.IncompatiblePlatform:
			compat = "incompatible"
		}
		table.Append(d.Name, d.Version, installed, compat)
	}

	return table.Render()
}
