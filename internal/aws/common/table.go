package common

import (
	"github.com/olekukonko/tablewriter"

	"ekscd/internal/logging"
)

func RenderTable(fields []string, data [][]string) {
	table := tablewriter.NewWriter(logging.Output)
	table.SetHeader(fields)
	table.SetRowLine(true)
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}
