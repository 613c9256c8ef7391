package apply

import (
	"context"
	"testing"

	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

// fakeTransport records the last Patch/Post call so rollback tests can
// assert which snapshot entry was acted on.
type fakeTransport struct {
	patchPath string
	patchBody any
	postPath  string
	postBody  any
}

func (f *fakeTransport) Get(ctx context.Context, path string, out any) error { return nil }

func (f *fakeTransport) Post(ctx context.Context, path string, body, out any) error {
	f.postPath, f.postBody = path, body
	return nil
}

func (f *fakeTransport) Patch(ctx context.Context, path string, body, out any) error {
	f.patchPath, f.patchBody = path, body
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, path string) error { return nil }

func (f *fakeTransport) Close() error { return nil }

func TestLengthDeltaInvariant(t *testing.T) {
	check := lengthDelta(device.FamilyFirewall)
	before := []map[string]any{{"chain": "forward"}}

	cases := []struct {
		name    string
		op      riskengine.Operation
		after   []map[string]any
		wantErr bool
	}{
		{"add grows by one", riskengine.OperationAdd, []map[string]any{{"chain": "forward"}, {"chain": "input"}}, false},
		{"add with no growth fails", riskengine.OperationAdd, []map[string]any{{"chain": "forward"}}, true},
		{"remove shrinks by one", riskengine.OperationRemove, nil, false},
		{"modify unchanged", riskengine.OperationModify, []map[string]any{{"chain": "forward"}}, false},
		{"modify that changed size fails", riskengine.OperationModify, []map[string]any{{"chain": "forward"}, {"chain": "input"}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := check(tc.op, before, tc.after, "")
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestContainsIDInvariant(t *testing.T) {
	check := containsID(device.FamilyWireless)

	if err := check(riskengine.OperationAdd, nil, nil, "new-id"); err == nil {
		t.Fatal("expected error for empty mutated collection")
	}

	after := []map[string]any{{".id": "other"}}
	if err := check(riskengine.OperationAdd, nil, after, "new-id"); err == nil {
		t.Fatal("expected error when new id is missing from collection")
	}

	after = []map[string]any{{".id": "new-id"}}
	if err := check(riskengine.OperationAdd, nil, after, "new-id"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := check(riskengine.OperationRemove, after, nil, ""); err != nil {
		t.Fatalf("remove leaving an empty collection should be fine: %v", err)
	}
}

func TestMutationRegistryCoversAllFamilies(t *testing.T) {
	for _, family := range []device.Family{
		device.FamilyFirewall, device.FamilyRouting, device.FamilyWireless, device.FamilyDHCP, device.FamilyBridge,
	} {
		if _, ok := Get(family); !ok {
			t.Errorf("no mutation definition registered for family %q", family)
		}
	}
}

func TestBuildFirewallBodyModifyUsesModifications(t *testing.T) {
	params := riskengine.Params{"modifications": map[string]any{"comment": "updated"}}
	body := buildFirewallBody(riskengine.OperationModify, params)
	if body["comment"] != "updated" {
		t.Fatalf("expected modify body to come from modifications, got %v", body)
	}
}

func TestBuildFirewallBodyAddUsesWireNames(t *testing.T) {
	params := riskengine.Params{"chain": "forward", "dst_address": "10.0.0.0/24", "dst_port": "443"}
	body := buildFirewallBody(riskengine.OperationAdd, params)
	if body["dst-address"] != "10.0.0.0/24" || body["dst-port"] != "443" {
		t.Fatalf("expected wire-style keys, got %v", body)
	}
}

func TestRollbackModifyRestoresSnapshotEntryMatchingNewID(t *testing.T) {
	mut, ok := Get(device.FamilyFirewall)
	if !ok {
		t.Fatal("no mutation definition for firewall")
	}
	before := []map[string]any{
		{".id": "*1", "chain": "forward"},
		{".id": "*2", "chain": "input"},
	}

	tr := &fakeTransport{}
	w := &worker{}
	if err := w.rollback(context.Background(), tr, mut, riskengine.OperationModify, before, "*2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.patchPath != mut.CollectionPath+"/*2" {
		t.Fatalf("expected patch against %s/*2, got %q", mut.CollectionPath, tr.patchPath)
	}
	body, ok := tr.patchBody.(map[string]any)
	if !ok || body["chain"] != "input" {
		t.Fatalf("expected restored body to be the *2 snapshot entry, got %v", tr.patchBody)
	}
}

func TestRollbackRemoveRecreatesSnapshotEntryMatchingNewID(t *testing.T) {
	mut, ok := Get(device.FamilyFirewall)
	if !ok {
		t.Fatal("no mutation definition for firewall")
	}
	before := []map[string]any{
		{".id": "*1", "chain": "forward"},
		{".id": "*2", "chain": "input"},
	}

	tr := &fakeTransport{}
	w := &worker{}
	if err := w.rollback(context.Background(), tr, mut, riskengine.OperationRemove, before, "*1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.postPath != mut.CollectionPath {
		t.Fatalf("expected post against collection path, got %q", tr.postPath)
	}
	body, ok := tr.postBody.(map[string]any)
	if !ok || body["chain"] != "forward" {
		t.Fatalf("expected re-created body to be the *1 snapshot entry, got %v", tr.postBody)
	}
}

func TestRollbackModifyErrorsWhenSnapshotEntryMissing(t *testing.T) {
	mut, ok := Get(device.FamilyFirewall)
	if !ok {
		t.Fatal("no mutation definition for firewall")
	}
	before := []map[string]any{{".id": "*1", "chain": "forward"}}

	w := &worker{}
	if err := w.rollback(context.Background(), &fakeTransport{}, mut, riskengine.OperationModify, before, "*9"); err == nil {
		t.Fatal("expected error when no snapshot entry matches newID")
	}
}
