package fat12

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// directoryRow is one CSV row of a root directory listing, tagged for
// gocsv's struct-based marshaling.
type directoryRow struct {
	Name    string `csv:"name"`
	Size    uint32 `csv:"size_bytes"`
	Cluster uint16 `csv:"first_cluster"`
	Attr    string `csv:"attr"`
}

func attrString(a uint8) string {
	flags := ""
	if a&AttrReadOnly != 0 {
		flags += "R"
	}
	if a&AttrHidden != 0 {
		flags += "H"
	}
	if a&AttrSystem != 0 {
		flags += "S"
	}
	if a&AttrDir != 0 {
		flags += "D"
	}
	if a&AttrArchive != 0 {
		flags += "A"
	}
	if flags == "" {
		return "-"
	}
	return flags
}

// DumpDirectoryCSV writes the root directory listing to w as CSV, one
// row per live entry, for offline inspection of a mounted image.
func (e *Engine) DumpDirectoryCSV(w io.Writer) error {
	entries, err := e.ListRoot()
	if err != nil {
		return fmt.Errorf("fat12: dump directory: %w", err)
	}
	rows := make([]directoryRow, 0, len(entries))
	for _, d := range entries {
		rows = append(rows, directoryRow{
			Name:    Name83ToString(d.Name, d.Ext),
			Size:    d.Size,
			Cluster: d.FirstCluster,
			Attr:    attrString(d.Attr),
		})
	}
	return gocsv.Marshal(rows, w)
}
