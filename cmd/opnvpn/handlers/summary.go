package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opnsense-tools/opnvpn/internal/provisioning"
)

var (
	summaryColorGreen  = lipgloss.Color("#22c55e")
	summaryColorYellow = lipgloss.Color("#eab308")
	summaryColorBlue   = lipgloss.Color("#3b82f6")
	summaryColorDim    = lipgloss.Color("#6b7280")
	summaryColorWhite  = lipgloss.Color("#f9fafb")
)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(summaryColorWhite)

	summarySectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(summaryColorBlue)

	summaryDimStyle = lipgloss.NewStyle().
			Foreground(summaryColorDim)

	summaryGreenStyle = lipgloss.NewStyle().
				Foreground(summaryColorGreen)

	summaryWarnStyle = lipgloss.NewStyle().
				Foreground(summaryColorYellow)
)

// renderProvisionSummary produces the lipgloss-styled end-of-run report.
func renderProvisionSummary(profileName string, state *provisioning.State, artifactDir string, warnings []provisioning.Warning) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(summaryTitleStyle.Render(fmt.Sprintf("  opnvpn provision: %s", profileName)))
	b.WriteString("\n")
	b.WriteString(summaryDimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	b.WriteString(summarySectionStyle.Render("  Resources"))
	b.WriteString("\n")
	b.WriteString(summaryDimStyle.Render("  " + strings.Repeat("─", 35)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    %-20s %s\n", "Group", state.GroupRef)
	fmt.Fprintf(&b, "    %-20s %s\n", "CA", state.CARef)
	fmt.Fprintf(&b, "    %-20s %s\n", "Server certificate", state.ServerCertRef)
	fmt.Fprintf(&b, "    %-20s %s\n", "Static key", state.StaticKeyRef)
	fmt.Fprintf(&b, "    %-20s %s (vpnid %d)\n", "Instance", state.InstanceRef, state.VPNID)
	if len(state.Slots) > 0 {
		fmt.Fprintf(&b, "    %-20s %s\n", "Interface slots", strings.Join(state.Slots, ", "))
	}

	if len(state.ClientCertRefs) > 0 {
		users := make([]string, 0, len(state.ClientCertRefs))
		for user := range state.ClientCertRefs {
			users = append(users, user)
		}
		sort.Strings(users)
		b.WriteString("\n")
		b.WriteString(summarySectionStyle.Render("  Client certificates"))
		b.WriteString("\n")
		b.WriteString(summaryDimStyle.Render("  " + strings.Repeat("─", 35)))
		b.WriteString("\n")
		for _, user := range users {
			fmt.Fprintf(&b, "    %-20s %s\n", user, state.ClientCertRefs[user])
		}
	}

	if len(warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(summaryWarnStyle.Render(fmt.Sprintf("  Warnings (%d)", len(warnings))))
		b.WriteString("\n")
		b.WriteString(summaryDimStyle.Render("  " + strings.Repeat("─", 35)))
		b.WriteString("\n")
		for _, w := range warnings {
			b.WriteString(summaryWarnStyle.Render("    " + w.String()))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(summaryGreenStyle.Render("  Provisioning complete."))
	b.WriteString("\n")
	b.WriteString(summaryDimStyle.Render(fmt.Sprintf("  Artifacts: %s", artifactDir)))
	b.WriteString("\n")
	b.WriteString(summaryDimStyle.Render("  Next: opnvpn bundle"))
	b.WriteString("\n")

	return b.String()
}
