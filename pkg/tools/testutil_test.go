package tools

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/logging"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfcli"
)

// newTestDeps builds a Deps wired to an httptest server standing in for
// the org, and a CLI executor that will fail any invocation unless the
// test doesn't exercise the CLI path.
func newTestDeps(t *testing.T, handler http.HandlerFunc) (*Deps, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	state := serverstate.New()
	state.SetOrg(serverstate.Org{
		ID:          "00Dxx0000000001",
		InstanceURL: srv.URL,
		AccessToken: "tok",
		APIVersion:  "60.0",
		Username:    "user@example.com",
		User:        serverstate.User{ID: "005xx000000001"},
	})
	state.SetWorkspacePath(t.TempDir())
	state.SetInitializationComplete(true)

	gw := sfapi.New(state, sfcli.New("sf", ""), false)

	return &Deps{
		Gateway:   gw,
		CLI:       sfcli.New("/bin/false", state.WorkspacePath()),
		Resources: mcp.NewResourceStore(0, nil),
		State:     state,
		Logger:    logging.NewDiscardLogger(),
	}, srv
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}
