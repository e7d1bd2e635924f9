package handlers

import (
	"fmt"
	"strings"
)

// Profiles prints the configured firewall profiles.
func Profiles(configPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(summaryTitleStyle.Render("  Configured profiles"))
	b.WriteString("\n")
	b.WriteString(summaryDimStyle.Render("  " + strings.Repeat("─", 45)))
	b.WriteString("\n")
	b.WriteString(summaryDimStyle.Render(fmt.Sprintf("  %-16s %-32s %s", "Name", "API", "SSH")))
	b.WriteString("\n")
	for _, p := range cfg.Profiles {
		fmt.Fprintf(&b, "  %-16s %-32s %s@%s:%d\n",
			p.Name, p.Connection.APIBaseURL,
			p.Connection.SSHUser, p.Connection.SSHHost, p.Connection.SSHPort)
	}
	b.WriteString("\n")

	fmt.Print(b.String())
	return nil
}
