package nimos

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/arrayops/acrctl/internal/acr"
	"github.com/arrayops/acrctl/internal/arraysim"
	"github.com/arrayops/acrctl/internal/testutil/testlog"
)

func newSimServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sim := arraysim.New(arraysim.Config{
		Username:        "admin",
		Password:        "secret",
		Volumes:         []string{"v1", "v2"},
		InitiatorGroups: []string{"ig1", "ig2"},
		ChapUsers:       []string{"chap1"},
		Snapshots:       []string{"snap1"},
	})
	ts := httptest.NewServer(sim.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newSimClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Endpoint: endpoint,
		Username: "admin",
		Password: "secret",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	testlog.Start(t)

	if _, err := NewClient(Config{Username: "admin", Password: "x"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, err := NewClient(Config{Endpoint: "array1"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing credentials")
	}

	client, err := NewClient(Config{Endpoint: "array1", Username: "admin", Password: "x"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.base != "https://array1:5392" {
		t.Fatalf("bare host base = %q", client.base)
	}
}

func TestLookupVolume(t *testing.T) {
	testlog.Start(t)
	ts := newSimServer(t)
	client := newSimClient(t, ts.URL)

	ref, err := client.LookupVolume(context.Background(), "v1")
	if err != nil {
		t.Fatalf("lookup volume: %v", err)
	}
	if ref == nil || ref.ID == "" || ref.Attrs["name"] != "v1" {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	missing, err := client.LookupVolume(context.Background(), "nope")
	if err != nil {
		t.Fatalf("lookup missing volume: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing volume, got %+v", missing)
	}
}

func TestLookupOptionalIdentifiers(t *testing.T) {
	testlog.Start(t)
	ts := newSimServer(t)
	client := newSimClient(t, ts.URL)

	id, err := client.LookupChapUser(context.Background(), "chap1")
	if err != nil {
		t.Fatalf("lookup chap user: %v", err)
	}
	if id == "" {
		t.Fatal("expected chap user id")
	}

	id, err = client.LookupSnapshot(context.Background(), "snap1")
	if err != nil {
		t.Fatalf("lookup snapshot: %v", err)
	}
	if id == "" {
		t.Fatal("expected snapshot id")
	}

	id, err = client.LookupProtocolEndpoint(context.Background(), "pe-none")
	if err != nil {
		t.Fatalf("lookup protocol endpoint: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty id for missing endpoint, got %q", id)
	}
}

func TestBadCredentialsSurfaceAsError(t *testing.T) {
	testlog.Start(t)
	ts := newSimServer(t)

	client, err := NewClient(Config{
		Endpoint: ts.URL,
		Username: "admin",
		Password: "wrong",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.LookupVolume(context.Background(), "v1"); err == nil {
		t.Fatal("expected authentication failure")
	} else if !strings.Contains(err.Error(), "authenticate") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateLookupDeleteACR(t *testing.T) {
	testlog.Start(t)
	ts := newSimServer(t)
	client := newSimClient(t, ts.URL)
	ctx := context.Background()

	group, err := client.LookupInitiatorGroup(ctx, "ig1")
	if err != nil || group == nil {
		t.Fatalf("lookup group: ref=%+v err=%v", group, err)
	}
	vol, err := client.LookupVolume(ctx, "v1")
	if err != nil || vol == nil {
		t.Fatalf("lookup volume: ref=%+v err=%v", vol, err)
	}

	lun := 0
	created, err := client.CreateACR(ctx, group.ID, vol.ID, acr.CreateParams{
		ApplyTo: acr.ApplyToBoth,
		Lun:     &lun,
	})
	if err != nil {
		t.Fatalf("create acr: %v", err)
	}
	if created == nil || created.ID == "" {
		t.Fatalf("unexpected created ref: %+v", created)
	}

	found, err := client.LookupACRByVolume(ctx, "v1")
	if err != nil {
		t.Fatalf("lookup acr: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("lookup after create: %+v", found)
	}
	if found.InitiatorGroupID() != group.ID {
		t.Fatalf("record group id = %q, want %q", found.InitiatorGroupID(), group.ID)
	}
	if found.Attrs[acr.AttrLun] != "0" {
		t.Fatalf("record lun = %q", found.Attrs[acr.AttrLun])
	}

	if err := client.DeleteACR(ctx, created.ID); err != nil {
		t.Fatalf("delete acr: %v", err)
	}
	gone, err := client.LookupACRByVolume(ctx, "v1")
	if err != nil {
		t.Fatalf("lookup after delete: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected record gone, got %+v", gone)
	}
}

func TestCreateACRUnknownVolumeFails(t *testing.T) {
	testlog.Start(t)
	ts := newSimServer(t)
	client := newSimClient(t, ts.URL)

	group, err := client.LookupInitiatorGroup(context.Background(), "ig1")
	if err != nil || group == nil {
		t.Fatalf("lookup group: ref=%+v err=%v", group, err)
	}

	_, err = client.CreateACR(context.Background(), group.ID, "bogus-vol-id", acr.CreateParams{})
	if err == nil {
		t.Fatal("expected create against unknown volume to fail")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReconcileAgainstSimulator(t *testing.T) {
	testlog.Start(t)
	ts := newSimServer(t)
	client := newSimClient(t, ts.URL)

	rec := acr.NewReconciler(client, zerolog.Nop())
	ctx := context.Background()
	spec := acr.Spec{Volume: "v1", InitiatorGroup: "ig1", ChapUser: "chap1"}

	res := rec.Reconcile(ctx, acr.StatePresent, spec)
	if !res.OK || !res.Changed || res.Message != acr.MsgCreated {
		t.Fatalf("first present: %+v", res)
	}

	res = rec.Reconcile(ctx, acr.StatePresent, spec)
	if !res.OK || res.Changed || res.Message != acr.MsgAlreadyPresent {
		t.Fatalf("second present: %+v", res)
	}

	res = rec.Reconcile(ctx, acr.StateCreate, spec)
	if res.OK || res.Message != acr.MsgCreateConflict {
		t.Fatalf("strict create: %+v", res)
	}

	res = rec.Reconcile(ctx, acr.StateAbsent, acr.Spec{Volume: "v1"})
	if !res.OK || !res.Changed || res.Message != acr.MsgDeleted {
		t.Fatalf("absent: %+v", res)
	}

	res = rec.Reconcile(ctx, acr.StateAbsent, acr.Spec{Volume: "v1"})
	if !res.OK || res.Changed || res.Message != acr.MsgAlreadyAbsent {
		t.Fatalf("absent again: %+v", res)
	}
}
