package acr

import (
	"fmt"
	"strconv"
	"strings"
)

// DesiredState selects the reconciliation branch for one invocation.
type DesiredState string

const (
	// StateCreate requests a new record and fails if one already exists.
	StateCreate DesiredState = "create"
	// StatePresent requests a record, treating an existing match as satisfied.
	StatePresent DesiredState = "present"
	// StateAbsent requests removal, treating a missing record as satisfied.
	StateAbsent DesiredState = "absent"
)

// ParseDesiredState accepts exactly the three recognized state strings.
func ParseDesiredState(raw string) (DesiredState, error) {
	switch DesiredState(strings.ToLower(strings.TrimSpace(raw))) {
	case StateCreate:
		return StateCreate, nil
	case StatePresent:
		return StatePresent, nil
	case StateAbsent:
		return StateAbsent, nil
	default:
		return "", fmt.Errorf("acr: unknown desired state %q (want create, present or absent)", raw)
	}
}

// ApplyTo names the object class an access control record applies to.
type ApplyTo string

const (
	ApplyToVolume       ApplyTo = "volume"
	ApplyToSnapshot     ApplyTo = "snapshot"
	ApplyToBoth         ApplyTo = "both"
	ApplyToPE           ApplyTo = "pe"
	ApplyToVvolVolume   ApplyTo = "vvol_volume"
	ApplyToVvolSnapshot ApplyTo = "vvol_snapshot"
)

// DefaultApplyTo is used when the caller leaves apply_to unset.
const DefaultApplyTo = ApplyToBoth

// ParseApplyTo validates an apply_to choice, defaulting empty input to "both".
func ParseApplyTo(raw string) (ApplyTo, error) {
	v := ApplyTo(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case "":
		return DefaultApplyTo, nil
	case ApplyToVolume, ApplyToSnapshot, ApplyToBoth, ApplyToPE, ApplyToVvolVolume, ApplyToVvolSnapshot:
		return v, nil
	default:
		return "", fmt.Errorf("acr: unknown apply_to %q", raw)
	}
}

// Spec carries the requested record attributes for one reconcile invocation.
// Optional fields are pointers so "unset" and "zero" stay distinguishable.
type Spec struct {
	ApplyTo          ApplyTo
	Volume           string
	InitiatorGroup   string
	ChapUser         string
	Lun              *int
	ProtocolEndpoint string
	Snapshot         string
	PECandidateIDs   []string
}

// CreateParams is the resolved, typed payload for a record create call.
// Only set fields are serialized toward the array.
type CreateParams struct {
	ApplyTo        ApplyTo
	ChapUserID     *string
	Lun            *int
	PEID           *string
	SnapID         *string
	PECandidateIDs []string
}

// Wire attribute keys shared with the array API and simulator.
const (
	AttrApplyTo          = "apply_to"
	AttrChapUserID       = "chap_user_id"
	AttrLun              = "lun"
	AttrPEID             = "pe_id"
	AttrSnapID           = "snap_id"
	AttrPECandidateIDs   = "pe_ids"
	AttrInitiatorGroupID = "initiator_group_id"
	AttrVolID            = "vol_id"
)

// Fields serializes the set parameters into wire attributes.
func (p CreateParams) Fields() map[string]string {
	out := make(map[string]string)
	if p.ApplyTo != "" {
		out[AttrApplyTo] = string(p.ApplyTo)
	}
	if p.ChapUserID != nil {
		out[AttrChapUserID] = *p.ChapUserID
	}
	if p.Lun != nil {
		out[AttrLun] = strconv.Itoa(*p.Lun)
	}
	if p.PEID != nil {
		out[AttrPEID] = *p.PEID
	}
	if p.SnapID != nil {
		out[AttrSnapID] = *p.SnapID
	}
	if len(p.PECandidateIDs) > 0 {
		out[AttrPECandidateIDs] = strings.Join(p.PECandidateIDs, ",")
	}
	return out
}

// WithoutUnchanged clears every parameter whose wire value already matches the
// existing record, so the create call carries only the delta.
func (p CreateParams) WithoutUnchanged(existing map[string]string) CreateParams {
	if len(existing) == 0 {
		return p
	}
	out := p
	if v, ok := existing[AttrApplyTo]; ok && v == string(p.ApplyTo) {
		out.ApplyTo = ""
	}
	if p.ChapUserID != nil && existing[AttrChapUserID] == *p.ChapUserID {
		out.ChapUserID = nil
	}
	if p.Lun != nil && existing[AttrLun] == strconv.Itoa(*p.Lun) {
		out.Lun = nil
	}
	if p.PEID != nil && existing[AttrPEID] == *p.PEID {
		out.PEID = nil
	}
	if p.SnapID != nil && existing[AttrSnapID] == *p.SnapID {
		out.SnapID = nil
	}
	if len(p.PECandidateIDs) > 0 && existing[AttrPECandidateIDs] == strings.Join(p.PECandidateIDs, ",") {
		out.PECandidateIDs = nil
	}
	return out
}
