// Package config models the provisioning inputs: connection profiles for
// one or more firewall appliances, the automation settings bag, and the
// user list. Profiles live in a YAML file that may be partial; absent
// fields are filled from defaults before validation.
package config

import (
	"fmt"
	"strings"
)

// Connection holds the management API and SSH endpoints of one appliance.
type Connection struct {
	APIBaseURL  string `yaml:"api_base_url"`
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	InsecureTLS bool   `yaml:"insecure_tls"`
	SSHHost     string `yaml:"ssh_host"`
	SSHPort     int    `yaml:"ssh_port"`
	SSHUser     string `yaml:"ssh_user"`
	SSHPassword string `yaml:"ssh_password"`
}

// NamePatterns are the prefixes resources are named and re-discovered by.
type NamePatterns struct {
	CAPrefix        string `yaml:"ca_prefix"`
	ServerCN        string `yaml:"server_cn"`
	StaticKeyPrefix string `yaml:"static_key_prefix"`
	InstancePrefix  string `yaml:"instance_prefix"`
}

// Lifetimes are certificate validity spans in days.
type Lifetimes struct {
	CADays         int `yaml:"ca_days"`
	ServerCertDays int `yaml:"server_cert_days"`
	ClientCertDays int `yaml:"client_cert_days"`
}

// Firewall holds the VPN transport the inbound rule opens.
type Firewall struct {
	ListenPort string `yaml:"listen_port"`
	Protocol   string `yaml:"protocol"`
}

// Automation is the settings bag consumed by the provisioning pipeline.
type Automation struct {
	GroupName            string       `yaml:"group_name"`
	GroupDescription     string       `yaml:"group_description"`
	TunnelNetwork        string       `yaml:"tunnel_network"`
	LocalNetwork         string       `yaml:"local_network"`
	StaticKeyMode        string       `yaml:"static_key_mode"`
	DevType              string       `yaml:"dev_type"`
	Topology             string       `yaml:"topology"`
	InterfaceDescription string       `yaml:"interface_description"`
	NamePatterns         NamePatterns `yaml:"name_patterns"`
	Lifetimes            Lifetimes    `yaml:"lifetimes"`
	Firewall             Firewall     `yaml:"firewall"`
}

// User is one VPN account to provision.
type User struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
}

// Profile pairs a named appliance connection with its automation settings.
type Profile struct {
	Name       string     `yaml:"name"`
	Connection Connection `yaml:"connection"`
	Automation Automation `yaml:"automation"`
}

// File is the top-level configuration document.
type File struct {
	Profiles      []Profile `yaml:"profiles"`
	Users         []User    `yaml:"users"`
	OutputDir     string    `yaml:"output_dir"`
	MutatorBinary string    `yaml:"mutator_binary"`
}

// DefaultAutomation returns the settings the original automation shipped
// with. Partial profiles are merged against this.
func DefaultAutomation() Automation {
	return Automation{
		GroupName:            "vpn-users",
		GroupDescription:     "VPN users (auto-generated)",
		TunnelNetwork:        "10.99.0.0/24",
		LocalNetwork:         "192.168.1.0/24",
		StaticKeyMode:        "tls-crypt",
		DevType:              "tun",
		Topology:             "subnet",
		InterfaceDescription: "VPN_TUNNEL_AUTO",
		NamePatterns: NamePatterns{
			CAPrefix:        "AutoCA_VPN",
			ServerCN:        "AutoVPN_Gateway",
			StaticKeyPrefix: "AutoTLSKey",
			InstancePrefix:  "AutoVPN_Server",
		},
		Lifetimes: Lifetimes{
			CADays:         3650,
			ServerCertDays: 3650,
			ClientCertDays: 3650,
		},
		Firewall: Firewall{
			ListenPort: "1194",
			Protocol:   "udp4",
		},
	}
}

// applyDefaults fills absent automation fields and the SSH port.
func (p *Profile) applyDefaults() {
	if p.Connection.SSHPort == 0 {
		p.Connection.SSHPort = 22
	}
	d := DefaultAutomation()
	a := &p.Automation
	setIfEmpty(&a.GroupName, d.GroupName)
	setIfEmpty(&a.GroupDescription, d.GroupDescription)
	setIfEmpty(&a.TunnelNetwork, d.TunnelNetwork)
	setIfEmpty(&a.LocalNetwork, d.LocalNetwork)
	setIfEmpty(&a.StaticKeyMode, d.StaticKeyMode)
	setIfEmpty(&a.DevType, d.DevType)
	setIfEmpty(&a.Topology, d.Topology)
	setIfEmpty(&a.InterfaceDescription, d.InterfaceDescription)
	setIfEmpty(&a.NamePatterns.CAPrefix, d.NamePatterns.CAPrefix)
	setIfEmpty(&a.NamePatterns.ServerCN, d.NamePatterns.ServerCN)
	setIfEmpty(&a.NamePatterns.StaticKeyPrefix, d.NamePatterns.StaticKeyPrefix)
	setIfEmpty(&a.NamePatterns.InstancePrefix, d.NamePatterns.InstancePrefix)
	setIfEmpty(&a.Firewall.ListenPort, d.Firewall.ListenPort)
	setIfEmpty(&a.Firewall.Protocol, d.Firewall.Protocol)
	if a.Lifetimes.CADays == 0 {
		a.Lifetimes.CADays = d.Lifetimes.CADays
	}
	if a.Lifetimes.ServerCertDays == 0 {
		a.Lifetimes.ServerCertDays = d.Lifetimes.ServerCertDays
	}
	if a.Lifetimes.ClientCertDays == 0 {
		a.Lifetimes.ClientCertDays = d.Lifetimes.ClientCertDays
	}
}

func setIfEmpty(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}

// Validate checks the fields the pipeline cannot run without.
func (f *File) Validate() error {
	if len(f.Profiles) == 0 {
		return fmt.Errorf("no profiles configured")
	}
	seen := make(map[string]bool, len(f.Profiles))
	for i := range f.Profiles {
		p := &f.Profiles[i]
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("profile %d: name is required", i+1)
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return fmt.Errorf("duplicate profile name %q", p.Name)
		}
		seen[key] = true
		if err := p.Connection.validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	for i, u := range f.Users {
		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("user %d: name is required", i+1)
		}
		if u.Password == "" {
			return fmt.Errorf("user %q: password is required", u.Name)
		}
	}
	return nil
}

func (c *Connection) validate() error {
	switch {
	case c.APIBaseURL == "":
		return fmt.Errorf("connection: api_base_url is required")
	case c.APIKey == "":
		return fmt.Errorf("connection: api_key is required")
	case c.APISecret == "":
		return fmt.Errorf("connection: api_secret is required")
	case c.SSHHost == "":
		return fmt.Errorf("connection: ssh_host is required")
	case c.SSHUser == "":
		return fmt.Errorf("connection: ssh_user is required")
	case c.SSHPassword == "":
		return fmt.Errorf("connection: ssh_password is required")
	}
	return nil
}
