package acr

import (
	"strings"
	"testing"
)

func TestParseDesiredState(t *testing.T) {
	cases := []struct {
		raw  string
		want DesiredState
		ok   bool
	}{
		{raw: "create", want: StateCreate, ok: true},
		{raw: "present", want: StatePresent, ok: true},
		{raw: "absent", want: StateAbsent, ok: true},
		{raw: " Present ", want: StatePresent, ok: true},
		{raw: "", ok: false},
		{raw: "deleted", ok: false},
		{raw: "ensure", ok: false},
	}
	for _, tc := range cases {
		got, err := ParseDesiredState(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseDesiredState(%q) = (%q, %v), want %q", tc.raw, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDesiredState(%q) accepted invalid input", tc.raw)
		}
	}
}

func TestParseApplyToDefaultsToBoth(t *testing.T) {
	got, err := ParseApplyTo("")
	if err != nil || got != ApplyToBoth {
		t.Fatalf("ParseApplyTo(\"\") = (%q, %v)", got, err)
	}

	for _, raw := range []string{"volume", "snapshot", "both", "pe", "vvol_volume", "vvol_snapshot"} {
		if _, err := ParseApplyTo(raw); err != nil {
			t.Fatalf("ParseApplyTo(%q): %v", raw, err)
		}
	}

	if _, err := ParseApplyTo("vvol"); err == nil {
		t.Fatal("ParseApplyTo accepted unknown choice")
	}
}

func TestCreateParamsFieldsSerializesOnlySet(t *testing.T) {
	lun := 0
	chap := "chap-id-1"
	params := CreateParams{
		ApplyTo:        ApplyToVolume,
		ChapUserID:     &chap,
		Lun:            &lun,
		PECandidateIDs: []string{"pe-1", "pe-2"},
	}

	fields := params.Fields()
	if fields[AttrApplyTo] != "volume" {
		t.Fatalf("apply_to = %q", fields[AttrApplyTo])
	}
	if fields[AttrChapUserID] != "chap-id-1" {
		t.Fatalf("chap_user_id = %q", fields[AttrChapUserID])
	}
	if fields[AttrLun] != "0" {
		t.Fatalf("lun 0 must serialize when set, got %q", fields[AttrLun])
	}
	if fields[AttrPECandidateIDs] != "pe-1,pe-2" {
		t.Fatalf("pe_ids = %q", fields[AttrPECandidateIDs])
	}
	if _, ok := fields[AttrPEID]; ok {
		t.Fatal("unset pe_id must not serialize")
	}
	if _, ok := fields[AttrSnapID]; ok {
		t.Fatal("unset snap_id must not serialize")
	}
}

func TestWithoutUnchangedPrunesMatchingFields(t *testing.T) {
	lun := 7
	chap := "chap-id-1"
	params := CreateParams{
		ApplyTo:    ApplyToBoth,
		ChapUserID: &chap,
		Lun:        &lun,
	}

	existing := map[string]string{
		AttrApplyTo: "both",
		AttrLun:     "7",
		// chap_user_id differs on the record
		AttrChapUserID: "chap-id-9",
	}

	pruned := params.WithoutUnchanged(existing)
	if pruned.ApplyTo != "" {
		t.Fatalf("matching apply_to survived pruning: %q", pruned.ApplyTo)
	}
	if pruned.Lun != nil {
		t.Fatalf("matching lun survived pruning: %d", *pruned.Lun)
	}
	if pruned.ChapUserID == nil || *pruned.ChapUserID != "chap-id-1" {
		t.Fatal("differing chap_user_id must survive pruning")
	}

	fields := pruned.Fields()
	if len(fields) != 1 || !strings.Contains(fields[AttrChapUserID], "chap-id-1") {
		t.Fatalf("pruned fields = %v", fields)
	}
}

func TestWithoutUnchangedKeepsAllOnEmptyExisting(t *testing.T) {
	lun := 3
	params := CreateParams{ApplyTo: ApplyToBoth, Lun: &lun}
	pruned := params.WithoutUnchanged(nil)
	if pruned.ApplyTo != ApplyToBoth || pruned.Lun == nil {
		t.Fatalf("pruning against nil existing changed params: %+v", pruned)
	}
}

func TestResultOutcomeMapping(t *testing.T) {
	cases := []struct {
		res  Result
		want Outcome
	}{
		{Result{OK: true, Changed: false}, OutcomeSatisfied},
		{Result{OK: true, Changed: true}, OutcomeMutated},
		{Result{OK: false, Changed: false}, OutcomeFailed},
	}
	for _, tc := range cases {
		if got := tc.res.Outcome(); got != tc.want {
			t.Fatalf("Outcome(%+v) = %s, want %s", tc.res, got, tc.want)
		}
	}
}
