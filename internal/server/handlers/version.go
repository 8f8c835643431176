package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// ClientInfo describes the upstream client the gateway proxies through.
type ClientInfo struct {
	BaseURL        string `json:"base_url"`
	Site           string `json:"site"`
	UserAgent      string `json:"user_agent"`
	Keyed          bool   `json:"keyed"`
	ThrottleLimit  int    `json:"throttle_limit"`
	ThrottleWindow string `json:"throttle_window"`
}

type VersionResponse struct {
	App          BuildInfo         `json:"app"`
	Client       *ClientInfo       `json:"client,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
	Platform     string            `json:"platform"`
}

var (
	versionMu  sync.RWMutex
	buildInfo  = BuildInfo{Name: "stacman", Version: "dev", Commit: "unknown", BuildDate: "unknown"}
	clientInfo *ClientInfo
)

// SetVersionInfo records the ldflags injected build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	versionMu.Lock()
	defer versionMu.Unlock()
	buildInfo.Version = version
	buildInfo.Commit = commit
	buildInfo.BuildDate = buildDate
}

// SetAppName overrides the reported binary name. Empty names are ignored.
func SetAppName(name string) {
	if name == "" {
		return
	}
	versionMu.Lock()
	defer versionMu.Unlock()
	buildInfo.Name = name
}

// SetClientInfo publishes the upstream client settings; nil hides them.
func SetClientInfo(info *ClientInfo) {
	versionMu.Lock()
	defer versionMu.Unlock()
	clientInfo = info
}

// CurrentBuildInfo returns the recorded build metadata.
func CurrentBuildInfo() BuildInfo {
	versionMu.RLock()
	defer versionMu.RUnlock()
	info := buildInfo
	info.GoVersion = runtime.Version()
	return info
}

func VersionHandler(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()

	versionMu.RLock()
	var client *ClientInfo
	if clientInfo != nil {
		copied := *clientInfo
		client = &copied
	}
	versionMu.RUnlock()

	response := VersionResponse{
		App:    CurrentBuildInfo(),
		Client: client,
		Dependencies: map[string]string{
			"gofulmen": deps.Gofulmen,
			"crucible": deps.Crucible,
		},
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
