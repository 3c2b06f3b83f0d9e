package ipsec

import (
	"fmt"
	"strings"
)

// SummarySection is one headed block of the human-readable summary.
type SummarySection struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Summary describes the global flags and the role of every connection.
func (s *Session) Summary() []SummarySection {
	global := SummarySection{
		Title: "VPN Global Settings",
		Lines: []string{
			fmt.Sprintf("Enable VPN (IPsec) daemon: %t", s.settings.DaemonEnabled),
			fmt.Sprintf("Reduce TCP MSS to 1024: %t", s.settings.TCPMSS1024Enabled),
		},
	}
	conns := SummarySection{Title: "Gateway and Connections", Lines: []string{}}
	for _, conn := range s.conns.All() {
		conns.Lines = append(conns.Lines, conn.Name+": "+describeConnection(conn.Params))
	}
	return []SummarySection{global, conns}
}

func describeConnection(params *Params) string {
	right, _ := params.Get("right")
	if right == "%any" {
		pool, _ := params.Get("rightsourceip")
		return "A gateway serving clients in " + pool
	}
	return "A client connecting to " + right
}

// FormatSummary renders sections as plain text, one heading line per section followed
// by indented entries.
func FormatSummary(sections []SummarySection) string {
	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(section.Title)
		b.WriteByte('\n')
		for _, line := range section.Lines {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
