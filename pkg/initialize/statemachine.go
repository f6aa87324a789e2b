// Package initialize implements the five-phase Initialization State
// Machine (spec §4.2): client bind, workspace resolution, org
// identification, permission check, ready.
package initialize

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfcli"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

// Phase names the initialization state machine's states, including the
// absorbing Failed state.
type Phase string

const (
	PhaseCreated              Phase = "Created"
	PhaseAwaitingInitialize   Phase = "AwaitingInitialize"
	PhaseClientBound          Phase = "ClientBound"
	PhaseWorkspaceResolved    Phase = "WorkspaceResolved"
	PhaseOrgIdentified        Phase = "OrgIdentified"
	PhasePermissionsValidated Phase = "PermissionsValidated"
	PhaseReady                Phase = "Ready"
	PhaseFailed               Phase = "Failed"
)

// ListRootsTimeout bounds Phase 2's roots/list round trip (§4.2, §5).
const ListRootsTimeout = 4 * time.Second

// WorkspaceWaitTimeout is the workspace-resolution wait bound of §4.2/§5.
// Run does not consult it: Phase 3 starts only after Phase 2 has
// returned, so it never waits for a workspace path.
const WorkspaceWaitTimeout = 5 * time.Second

// PermissionSetName is the permission-set-assignment membership Phase 4
// checks the bound user against, unless BypassPermissionCheck is set.
const PermissionSetName = "Salesforce_MCP_Server_Access"

// RootsLister issues a server-initiated roots/list request to the
// connected client, bounded by ctx.
type RootsLister interface {
	ListRoots(ctx context.Context) ([]string, error)
}

// ResourceClearer is satisfied by the resource store; Phase 4 clears it
// when the bound username changes.
type ResourceClearer interface {
	Clear()
}

// Options configures the state machine's behavior.
type Options struct {
	BypassPermissionCheck bool
	ClientAdvertisesRoots bool
}

// Machine drives the five phases and reports the current phase.
type Machine struct {
	mu    sync.Mutex
	phase Phase

	state       *serverstate.State
	gateway     *sfapi.Gateway
	cli         *sfcli.Executor
	resources   ResourceClearer
	roots       RootsLister
	logger      *slog.Logger
	opts        Options

	lastSeenUsername string
	readyCh          chan struct{}
	readyOnce        sync.Once
}

// New creates a state machine in PhaseCreated.
func New(state *serverstate.State, gateway *sfapi.Gateway, cli *sfcli.Executor, resources ResourceClearer, roots RootsLister, logger *slog.Logger, opts Options) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		phase:     PhaseCreated,
		state:     state,
		gateway:   gateway,
		cli:       cli,
		resources: resources,
		roots:     roots,
		logger:    logger,
		opts:      opts,
		readyCh:   make(chan struct{}),
	}
}

// Phase returns the current state.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Machine) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// Ready blocks until Phase 5 completes or ctx is cancelled.
func (m *Machine) Ready(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientBindParams is what Phase 1 needs from the initialize request.
type ClientBindParams struct {
	ClientName     string
	ClientVersion  string
	WorkspaceEnv   string // WORKSPACE_FOLDER_PATHS, first comma-separated entry
}

// Run executes all five phases in order. Phase 3/4 failures are
// recorded but do not abort the sequence entirely: Phase 5 still starts
// the watcher so a later org change can self-heal identification.
func (m *Machine) Run(ctx context.Context, params ClientBindParams) error {
	m.setPhase(PhaseAwaitingInitialize)

	m.phase1ClientBind()
	if err := m.phase2Workspace(ctx, params.WorkspaceEnv); err != nil {
		m.setPhase(PhaseFailed)
		return err
	}
	m.phase3OrgIdentification(ctx)
	m.phase4PermissionCheck(ctx)
	m.phase5Ready()
	return nil
}

func (m *Machine) phase1ClientBind() {
	m.state.SetHandshakeValidated(true)
	m.setPhase(PhaseClientBound)
}

// phase2Workspace resolves the workspace path per the priority order:
// env > roots API > cwd (§4.2 Phase 2, §8 workspace resolution
// invariant). Resolution is single-shot: SetWorkspacePath is only
// called if no path has been set yet.
func (m *Machine) phase2Workspace(ctx context.Context, workspaceEnv string) error {
	if m.state.WorkspacePath() != "" {
		m.setPhase(PhaseWorkspaceResolved)
		return nil
	}

	if path := firstEntry(workspaceEnv); path != "" {
		return m.finishWorkspace(decodeFileURI(path))
	}

	if m.opts.ClientAdvertisesRoots && m.roots != nil {
		rootsCtx, cancel := context.WithTimeout(ctx, ListRootsTimeout)
		defer cancel()
		roots, err := m.roots.ListRoots(rootsCtx)
		if err == nil {
			for _, r := range roots {
				if strings.HasPrefix(r, "file://") {
					return m.finishWorkspace(decodeFileURI(r))
				}
			}
		} else {
			m.logger.Warn("roots/list failed, falling back to cwd", "error", err)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return sferrors.Wrap(sferrors.KindInternal, err, "resolving cwd fallback")
	}
	return m.finishWorkspace(cwd)
}

func (m *Machine) finishWorkspace(path string) error {
	if path == "" {
		return sferrors.New(sferrors.KindValidation, "could not resolve a workspace path")
	}
	if m.state.WorkspacePath() == "" {
		m.state.SetWorkspacePath(path)
		if err := os.Chdir(path); err != nil {
			m.logger.Warn("could not chdir to resolved workspace", "path", path, "error", err)
		}
	}
	m.setPhase(PhaseWorkspaceResolved)
	return nil
}

// OnRootsChanged is the handler for notifications/roots/list_changed;
// per §4.2 it only takes effect if no workspace path has been set yet.
func (m *Machine) OnRootsChanged(ctx context.Context) {
	if m.state.WorkspacePath() != "" {
		return
	}
	if m.roots == nil {
		return
	}
	rootsCtx, cancel := context.WithTimeout(ctx, ListRootsTimeout)
	defer cancel()
	roots, err := m.roots.ListRoots(rootsCtx)
	if err != nil {
		return
	}
	for _, r := range roots {
		if strings.HasPrefix(r, "file://") {
			_ = m.finishWorkspace(decodeFileURI(r))
			return
		}
	}
}

func firstEntry(commaSeparated string) string {
	if commaSeparated == "" {
		return ""
	}
	parts := strings.SplitN(commaSeparated, ",", 2)
	return strings.TrimSpace(parts[0])
}

// decodeFileURI converts a file:// URI to a local path, handling
// Windows drive letters (§4.2).
func decodeFileURI(raw string) string {
	if !strings.HasPrefix(raw, "file://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimPrefix(raw, "file://")
	}
	path := u.Path
	if runtime.GOOS == "windows" && len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path
}

// phase3OrgIdentification invokes the CLI to obtain org identity. A
// failure clears state.org and userPermissionsValidated but does not
// abort the sequence (§4.2 Phase 3).
func (m *Machine) phase3OrgIdentification(ctx context.Context) {
	display, err := m.cli.DisplayOrg(ctx)
	if err != nil {
		m.logger.Warn("org identification failed", "error", err)
		m.state.ClearOrg()
		m.state.SetUserPermissionsValidated(false)
		m.setPhase(PhaseOrgIdentified)
		return
	}

	org := m.state.Org()
	org.Alias = display.Alias
	org.Username = display.Username
	org.InstanceURL = display.InstanceURL
	org.AccessToken = display.AccessToken
	org.APIVersion = display.APIVersion
	org.ID = display.ID
	m.state.SetOrg(org)
	m.setPhase(PhaseOrgIdentified)
}

// phase4PermissionCheck validates the bound user's permission-set
// assignment. Resource store is cleared whenever the username changes
// from the last value this machine observed (§4.2 Phase 4).
func (m *Machine) phase4PermissionCheck(ctx context.Context) {
	org := m.state.Org()
	if org.Username == "" {
		m.state.SetUserPermissionsValidated(false)
		m.setPhase(PhasePermissionsValidated)
		return
	}

	if m.lastSeenUsername != "" && m.lastSeenUsername != org.Username && m.resources != nil {
		m.resources.Clear()
	}
	m.lastSeenUsername = org.Username

	if m.opts.BypassPermissionCheck {
		m.state.SetUserPermissionsValidated(true)
		m.setPhase(PhasePermissionsValidated)
		return
	}

	user, err := m.queryUserPermission(ctx, org.Username)
	if err != nil {
		m.logger.Warn("permission check denied", "username", org.Username, "reason", err)
		m.state.SetUserPermissionsValidated(false)
		m.setPhase(PhasePermissionsValidated)
		return
	}

	org = m.state.Org()
	org.User = *user
	m.state.SetOrg(org)
	m.state.SetUserPermissionsValidated(true)
	m.setPhase(PhasePermissionsValidated)
}

func (m *Machine) queryUserPermission(ctx context.Context, username string) (*serverstate.User, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Name, Profile.Name, UserRole.Name FROM User "+
			"WHERE Username = '%s' AND Id IN "+
			"(SELECT AssigneeId FROM PermissionSetAssignment WHERE PermissionSet.Name = '%s')",
		escapeSOQLString(username), PermissionSetName)

	resp, err := m.gateway.Call(ctx, sfapi.MethodGet, sfapi.APIREST, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": soql},
	})
	if err != nil {
		return nil, err
	}

	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "unexpected query response shape")
	}
	records, _ := result["records"].([]any)
	if len(records) == 0 {
		return nil, sferrors.New(sferrors.KindAuth, "user is not assigned the required permission set")
	}
	record, _ := records[0].(map[string]any)
	return &serverstate.User{
		ID:          stringField(record, "Id"),
		Name:        stringField(record, "Name"),
		ProfileName: nestedStringField(record, "Profile", "Name"),
		RoleName:    nestedStringField(record, "UserRole", "Name"),
	}, nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func nestedStringField(m map[string]any, outer, inner string) string {
	nested, ok := m[outer].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(nested, inner)
}

func escapeSOQLString(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

// phase5Ready starts background refreshes and marks the server ready.
// Background refresh failures are warnings only (§4.2 Phase 5, §7).
func (m *Machine) phase5Ready() {
	go m.refreshCompanyDetails(context.Background())
	m.state.SetInitializationComplete(true)
	m.setPhase(PhaseReady)
	m.readyOnce.Do(func() { close(m.readyCh) })
}

// refreshCompanyDetails is Phase 5's one-shot background SOQL lookup of
// the org's company-detail record (Open Question b: no retry on
// failure).
func (m *Machine) refreshCompanyDetails(ctx context.Context) {
	if !m.state.Ready() {
		return
	}
	resp, err := m.gateway.Call(ctx, sfapi.MethodGet, sfapi.APIREST, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": "SELECT Name, OrganizationType, IsSandbox, NamespacePrefix, InstanceName FROM Organization LIMIT 1"},
	})
	if err != nil {
		m.logger.Warn("company details background refresh failed", "error", err)
		return
	}
	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return
	}
	records, _ := result["records"].([]any)
	if len(records) == 0 {
		return
	}
	record, _ := records[0].(map[string]any)

	org := m.state.Org()
	org.CompanyDetails = serverstate.CompanyDetails{
		Name:            stringField(record, "Name"),
		OrganizationID:  org.ID,
		InstanceName:    stringField(record, "InstanceName"),
		IsSandbox:       boolField(record, "IsSandbox"),
		NamespacePrefix: stringField(record, "NamespacePrefix"),
	}
	m.state.SetOrg(org)
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}
