package acr

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// RemoteRef is an array-side object reference: an opaque identifier plus the
// attributes the lookup resolved. A nil *RemoteRef signals not-found.
type RemoteRef struct {
	ID    string
	Attrs map[string]string
}

// InitiatorGroupID reads the group binding off a resolved record, if any.
func (r *RemoteRef) InitiatorGroupID() string {
	if r == nil {
		return ""
	}
	return r.Attrs[AttrInitiatorGroupID]
}

// ArrayAPI is the narrow array-management contract the reconciler drives.
// Lookups report not-found as a nil reference (or empty identifier) with a nil
// error; a non-nil error means the call itself failed.
type ArrayAPI interface {
	LookupInitiatorGroup(ctx context.Context, name string) (*RemoteRef, error)
	LookupVolume(ctx context.Context, name string) (*RemoteRef, error)
	LookupACRByVolume(ctx context.Context, volName string) (*RemoteRef, error)
	LookupChapUser(ctx context.Context, name string) (string, error)
	LookupProtocolEndpoint(ctx context.Context, name string) (string, error)
	LookupSnapshot(ctx context.Context, name string) (string, error)
	CreateACR(ctx context.Context, initiatorGroupID, volID string, params CreateParams) (*RemoteRef, error)
	DeleteACR(ctx context.Context, acrID string) error
}

// Reconciler resolves one desired state against the array with at most one
// mutation per invocation. It holds no state across invocations and performs
// no client-side locking: two concurrent reconciles against the same volume
// can still race on the array side.
type Reconciler struct {
	api ArrayAPI
	log zerolog.Logger
}

// NewReconciler binds a reconciler to one array client.
func NewReconciler(api ArrayAPI, log zerolog.Logger) *Reconciler {
	return &Reconciler{api: api, log: log}
}

// Reconcile applies the desired state and reports the outcome triple. Nothing
// escapes this boundary: every remote failure is converted into a Result.
func (r *Reconciler) Reconcile(ctx context.Context, state DesiredState, spec Spec) Result {
	var res Result
	switch state {
	case StateCreate, StatePresent:
		res = r.ensurePresent(ctx, state, spec)
	case StateAbsent:
		res = r.ensureAbsent(ctx, spec)
	default:
		res = failedf("acr: unknown desired state %q", state)
	}

	event := r.log.Info()
	if !res.OK {
		event = r.log.Error()
	}
	event.
		Str("state", string(state)).
		Str("volume", spec.Volume).
		Str("initiator_group", spec.InitiatorGroup).
		Str("outcome", string(res.Outcome())).
		Bool("changed", res.Changed).
		Msg(res.Message)
	return res
}

func (r *Reconciler) ensurePresent(ctx context.Context, state DesiredState, spec Spec) Result {
	if strings.TrimSpace(spec.InitiatorGroup) == "" {
		return failed(MsgMissingInitiatorGroup)
	}
	if strings.TrimSpace(spec.Volume) == "" {
		return failed(MsgMissingVolume)
	}

	params := r.resolveParams(ctx, spec)

	group, err := r.api.LookupInitiatorGroup(ctx, spec.InitiatorGroup)
	if err != nil {
		return failedf("creation failed: %v", err)
	}
	if group == nil {
		return failed(MsgInitiatorGroupNotFound)
	}

	vol, err := r.api.LookupVolume(ctx, spec.Volume)
	if err != nil {
		return failedf("creation failed: %v", err)
	}
	if vol == nil {
		return failed(MsgVolumeNotFound)
	}

	existing, err := r.api.LookupACRByVolume(ctx, spec.Volume)
	if err != nil {
		return failedf("creation failed: %v", err)
	}
	if existing != nil {
		if existing.InitiatorGroupID() == group.ID {
			if state == StatePresent {
				return satisfied(MsgAlreadyPresent)
			}
			return failed(MsgCreateConflict)
		}
		params = params.WithoutUnchanged(existing.Attrs)
	}

	if _, err := r.api.CreateACR(ctx, group.ID, vol.ID, params); err != nil {
		return failedf("creation failed: %v", err)
	}
	return mutated(MsgCreated)
}

func (r *Reconciler) ensureAbsent(ctx context.Context, spec Spec) Result {
	if strings.TrimSpace(spec.Volume) == "" {
		return failed(MsgMissingVolume)
	}

	vol, err := r.api.LookupVolume(ctx, spec.Volume)
	if err != nil {
		return failedf("deletion failed: %v", err)
	}
	if vol == nil {
		return failed(MsgVolumeNotFound)
	}

	existing, err := r.api.LookupACRByVolume(ctx, spec.Volume)
	if err != nil {
		return failedf("deletion failed: %v", err)
	}
	if existing == nil {
		return satisfied(MsgAlreadyAbsent)
	}

	if err := r.api.DeleteACR(ctx, existing.ID); err != nil {
		return failedf("deletion failed: %v", err)
	}
	return mutated(MsgDeleted)
}

// resolveParams translates the optional named references into identifiers.
// Resolution is best-effort per field: a miss or a failed lookup leaves the
// field unset rather than failing the reconcile, and is logged so a silently
// dropped reference stays visible.
func (r *Reconciler) resolveParams(ctx context.Context, spec Spec) CreateParams {
	params := CreateParams{
		ApplyTo:        spec.ApplyTo,
		Lun:            spec.Lun,
		PECandidateIDs: spec.PECandidateIDs,
	}
	if params.ApplyTo == "" {
		params.ApplyTo = DefaultApplyTo
	}
	params.ChapUserID = r.resolveOptional(ctx, "chap_user", spec.ChapUser, r.api.LookupChapUser)
	params.PEID = r.resolveOptional(ctx, "protocol_endpoint", spec.ProtocolEndpoint, r.api.LookupProtocolEndpoint)
	params.SnapID = r.resolveOptional(ctx, "snapshot", spec.Snapshot, r.api.LookupSnapshot)
	return params
}

func (r *Reconciler) resolveOptional(ctx context.Context, kind, name string, lookup func(context.Context, string) (string, error)) *string {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	id, err := lookup(ctx, name)
	if err != nil {
		r.log.Warn().Str(kind, name).Err(err).Msg("optional reference lookup failed, field dropped")
		return nil
	}
	if id == "" {
		r.log.Warn().Str(kind, name).Msg("optional reference not found, field dropped")
		return nil
	}
	return &id
}
