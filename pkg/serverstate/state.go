// Package serverstate holds the single process-wide Server State record
// (spec §3) and the sanitizer every resource/log line derived from it
// must pass through before leaving the process.
package serverstate

import (
	"sync"
	"time"
)

// User is the Salesforce user bound to the current org identity.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProfileName string `json:"profileName"`
	RoleName    string `json:"roleName"`
}

// CompanyDetails is populated by a best-effort background refresh after
// Ready; absent until that refresh succeeds.
type CompanyDetails struct {
	Name            string `json:"name,omitempty"`
	OrganizationID  string `json:"organizationId,omitempty"`
	InstanceName    string `json:"instanceName,omitempty"`
	IsSandbox       bool   `json:"isSandbox,omitempty"`
	NamespacePrefix string `json:"namespacePrefix,omitempty"`
}

// Org is the Salesforce org identity resolved during initialization
// Phase 3/4. AccessToken is sensitive and must never be logged or
// written into a resource without passing through Sanitize first.
type Org struct {
	Alias          string         `json:"alias"`
	Username       string         `json:"username"`
	InstanceURL    string         `json:"instanceUrl"`
	AccessToken    string         `json:"accessToken"`
	APIVersion     string         `json:"apiVersion"`
	ID             string         `json:"id"`
	User           User           `json:"user"`
	CompanyDetails CompanyDetails `json:"companyDetails"`
}

// State is the process-wide record mutated by the initialization state
// machine (including the re-identification the org watcher's OrgChanged
// callback triggers), the gateway's token refresh, and logging/setLevel,
// and read by every other component. Guarded by an RWMutex per spec §5's
// single-writer/multi-reader discipline for the three shared mutable
// regions (resource store, API cache, this record).
type State struct {
	mu sync.RWMutex

	org                     Org
	startedAt               time.Time
	currentLogLevel         string
	workspacePath           string
	userPermissionsValidated bool
	handshakeValidated      bool
	initializationComplete  bool
}

// New creates a Server State with startedAt set to now.
func New() *State {
	return &State{startedAt: time.Now(), currentLogLevel: "info"}
}

// Org returns a copy of the current org identity.
func (s *State) Org() Org {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.org
}

// SetOrg replaces the org identity.
func (s *State) SetOrg(org Org) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.org = org
}

// ClearOrg resets the org identity to zero value, used when Phase 3
// fails to resolve a username.
func (s *State) ClearOrg() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.org = Org{}
}

// StartedAt returns the process start time.
func (s *State) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// LogLevel returns the current MCP log level string.
func (s *State) LogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLogLevel
}

// SetLogLevel updates the current MCP log level string (logging/setLevel, §6.2).
func (s *State) SetLogLevel(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentLogLevel = level
}

// WorkspacePath returns the resolved workspace path, or "" if unresolved.
func (s *State) WorkspacePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspacePath
}

// SetWorkspacePath sets the resolved workspace path. Per §4.2 Phase 2,
// resolution is single-shot: callers should check WorkspacePath() == ""
// before calling this from a roots-changed notification handler.
func (s *State) SetWorkspacePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspacePath = path
}

// UserPermissionsValidated reports whether Phase 4 succeeded.
func (s *State) UserPermissionsValidated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userPermissionsValidated
}

// SetUserPermissionsValidated sets the Phase 4 result.
func (s *State) SetUserPermissionsValidated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userPermissionsValidated = v
}

// HandshakeValidated reports whether Phase 1 has completed.
func (s *State) HandshakeValidated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handshakeValidated
}

// SetHandshakeValidated marks Phase 1 complete.
func (s *State) SetHandshakeValidated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshakeValidated = v
}

// InitializationComplete reports whether Phase 5 has run and the server
// is Ready. Tool calls consult this directly.
func (s *State) InitializationComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializationComplete
}

// SetInitializationComplete marks the state machine Ready.
func (s *State) SetInitializationComplete(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializationComplete = v
}

// Ready reports whether the org identity is usable for gateway calls:
// id, instanceUrl, and accessToken are all non-empty. The gateway
// applies the same check to its own Org() copy rather than consulting
// InitializationComplete, so that a
// re-identification triggered by the org watcher is reflected
// immediately.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.org.ID != "" && s.org.InstanceURL != "" && s.org.AccessToken != ""
}

// Snapshot returns a sanitized, JSON-serializable view of the state
// suitable for the getState utility action (§4.8) and the /status
// endpoint (§6.3). The access token and any other sensitive field is
// redacted by Sanitize before this value leaves the package.
type Snapshot struct {
	Org                      map[string]any `json:"org"`
	StartedAt                time.Time      `json:"startedAt"`
	CurrentLogLevel          string         `json:"currentLogLevel"`
	WorkspacePath            string         `json:"workspacePath"`
	UserPermissionsValidated bool           `json:"userPermissionsValidated"`
	HandshakeValidated       bool           `json:"handshakeValidated"`
	InitializationComplete   bool           `json:"initializationComplete"`
}

// Snapshot builds a sanitized, read-only view of the full state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	org := s.org
	snap := Snapshot{
		StartedAt:                s.startedAt,
		CurrentLogLevel:          s.currentLogLevel,
		WorkspacePath:            s.workspacePath,
		UserPermissionsValidated: s.userPermissionsValidated,
		HandshakeValidated:       s.handshakeValidated,
		InitializationComplete:   s.initializationComplete,
	}
	s.mu.RUnlock()

	orgMap := map[string]any{
		"alias":       org.Alias,
		"username":    org.Username,
		"instanceUrl": org.InstanceURL,
		"accessToken": org.AccessToken,
		"apiVersion":  org.APIVersion,
		"id":          org.ID,
		"user": map[string]any{
			"id":          org.User.ID,
			"name":        org.User.Name,
			"profileName": org.User.ProfileName,
			"roleName":    org.User.RoleName,
		},
		"companyDetails": map[string]any{
			"name":            org.CompanyDetails.Name,
			"organizationId":  org.CompanyDetails.OrganizationID,
			"instanceName":    org.CompanyDetails.InstanceName,
			"isSandbox":       org.CompanyDetails.IsSandbox,
			"namespacePrefix": org.CompanyDetails.NamespacePrefix,
		},
	}
	snap.Org = Sanitize(orgMap, nil).(map[string]any)
	return snap
}
