// Package minecraft models a Minecraft server status as reported by the
// mcsrvstat.us v2 API and renders it as a chat reply.
package minecraft

import (
	"strconv"
	"strings"
)

// MOTD is the server's message of the day
type MOTD struct {
	Raw   []string `json:"raw,omitempty"`
	Clean []string `json:"clean,omitempty"`
}

// Players describes who is connected
type Players struct {
	Online int      `json:"online"`
	Max    int      `json:"max"`
	List   []string `json:"list,omitempty"`
}

// Status is a server status snapshot
type Status struct {
	Online   bool    `json:"online"`
	IP       string  `json:"ip"`
	Port     int     `json:"port"`
	Hostname string  `json:"hostname,omitempty"`
	Version  string  `json:"version,omitempty"`
	MOTD     MOTD    `json:"motd"`
	Players  Players `json:"players"`
}

// Address returns ip:port, or the ip alone when no port is known.
func (s Status) Address() string {
	if s.IP == "" {
		return s.Hostname
	}
	if s.Port == 0 {
		return s.IP
	}
	return s.IP + ":" + strconv.Itoa(s.Port)
}

// Name returns the cleaned MOTD on one line, falling back to the hostname.
func (s Status) Name() string {
	var parts []string
	for _, line := range s.MOTD.Clean {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) == 0 {
		return s.Hostname
	}
	return strings.Join(parts, " ")
}
