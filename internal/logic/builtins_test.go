package logic

import (
	"strings"
	"testing"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

func TestBuiltinModulesInfo(t *testing.T) {
	infos := BuiltinModulesInfo()
	if len(infos) != 6 {
		t.Fatalf("got %d builtin modules, want 6", len(infos))
	}

	ports := make(map[int]string)
	for _, m := range infos {
		if m.Name == "" || m.ShortDescription == "" || len(m.Checks) == 0 {
			t.Errorf("incomplete catalog entry: %+v", m)
		}
		if prev, dup := ports[m.DefaultPort]; dup {
			t.Errorf("port %d shared by %q and %q", m.DefaultPort, prev, m.Name)
		}
		ports[m.DefaultPort] = m.Name
		if m.DefaultBaseURL != defaultBaseURL(m.DefaultPort) {
			t.Errorf("base url mismatch for %q: %s", m.Name, m.DefaultBaseURL)
		}
		if m.Tier != models.TierCore && m.Tier != models.TierAdvanced {
			t.Errorf("unknown tier for %q: %s", m.Name, m.Tier)
		}

		// Check identifiers follow the module-name prefix convention the
		// dashboard uses to attribute detections.
		prefix := strings.ReplaceAll(strings.ToLower(m.Name), " ", "_")
		for _, c := range m.Checks {
			if !strings.HasPrefix(c, prefix) {
				t.Errorf("check %q does not match module prefix %q", c, prefix)
			}
		}
	}

	for port := 4030; port <= 4035; port++ {
		if _, ok := ports[port]; !ok {
			t.Errorf("no builtin module on port %d", port)
		}
	}
}
