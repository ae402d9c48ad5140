// system.go captures the server block of a payload.

package notifier

import (
	"os"
)

// serverInfo is resolved once in New; only argv is copied per event.
type serverInfo struct {
	host        string
	root        string
	branch      string
	codeVersion string
	pid         int
}

func newServerInfo(cfg Config) serverInfo {
	host := cfg.Host
	if host == "" {
		host, _ = os.Hostname() // Ignore error, empty hostname is acceptable
	}
	return serverInfo{
		host:        host,
		root:        cfg.Root,
		branch:      cfg.Branch,
		codeVersion: cfg.CodeVersion,
		pid:         os.Getpid(),
	}
}

// block returns data.server. branch is omitted entirely when not configured.
func (s serverInfo) block() map[string]any {
	server := map[string]any{
		"host": s.host,
		"root": s.root,
		"pid":  s.pid,
	}
	if s.codeVersion != "" {
		server["code_version"] = s.codeVersion
	}
	if s.branch != "" {
		server["branch"] = s.branch
	}
	if len(os.Args) > 0 {
		server["argv"] = append([]string(nil), os.Args...)
	}
	return server
}
