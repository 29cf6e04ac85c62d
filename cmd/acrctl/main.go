package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arrayops/acrctl/internal/acr"
	"github.com/arrayops/acrctl/internal/config"
	"github.com/arrayops/acrctl/internal/logging"
	"github.com/arrayops/acrctl/internal/nimos"
	"github.com/arrayops/acrctl/internal/observability"
)

func main() {
	logging.ConfigureRuntime()

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "acrctl: %v\n", err)
		os.Exit(2)
	}

	res := run(context.Background(), opts)
	fmt.Println(res.Message)
	if !res.OK {
		os.Exit(1)
	}
}

// options carries everything one invocation needs: the desired state, the
// record spec, and the array connection settings.
type options struct {
	state acr.DesiredState
	spec  acr.Spec
	array config.ArrayConfig
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("acrctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		configPath = fs.String("config", "", "path to the array connection config (TOML)")
		endpoint   = fs.String("endpoint", "", "array management endpoint (overrides config)")
		username   = fs.String("username", "", "array username (overrides config)")
		password   = fs.String("password", "", "array password (overrides config)")
		insecure   = fs.Bool("insecure", false, "skip TLS verification (overrides config)")
		timeout    = fs.String("timeout", "", "request timeout, e.g. 30s (overrides config)")

		state          = fs.String("state", "", "desired state: create, present or absent")
		volume         = fs.String("volume", "", "volume name the record applies to")
		initiatorGroup = fs.String("initiator-group", "", "initiator group name")
		chapUser       = fs.String("chap-user", "", "CHAP user name")
		lun            = fs.String("lun", "", "logical unit number (0 for iSCSI, 0-2047 for FC)")
		applyTo        = fs.String("apply-to", "", "record target: volume, snapshot, both, pe, vvol_volume or vvol_snapshot")
		protocolEP     = fs.String("protocol-endpoint", "", "protocol endpoint name")
		snapshot       = fs.String("snapshot", "", "snapshot name")
		peIDs          = fs.String("pe-ids", "", "comma-separated candidate protocol endpoint ids (vvol records)")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	desired, err := acr.ParseDesiredState(*state)
	if err != nil {
		return options{}, err
	}
	target, err := acr.ParseApplyTo(*applyTo)
	if err != nil {
		return options{}, err
	}

	spec := acr.Spec{
		ApplyTo:          target,
		Volume:           strings.TrimSpace(*volume),
		InitiatorGroup:   strings.TrimSpace(*initiatorGroup),
		ChapUser:         strings.TrimSpace(*chapUser),
		ProtocolEndpoint: strings.TrimSpace(*protocolEP),
		Snapshot:         strings.TrimSpace(*snapshot),
		PECandidateIDs:   splitIDs(*peIDs),
	}
	if strings.TrimSpace(*lun) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(*lun))
		if err != nil {
			return options{}, fmt.Errorf("invalid lun %q: %w", *lun, err)
		}
		spec.Lun = &n
	}

	array, err := resolveArrayConfig(*configPath, config.ArrayConfig{
		Endpoint: strings.TrimSpace(*endpoint),
		Username: strings.TrimSpace(*username),
		Password: *password,
		Insecure: *insecure,
		Timeout:  strings.TrimSpace(*timeout),
	})
	if err != nil {
		return options{}, err
	}

	return options{state: desired, spec: spec, array: array}, nil
}

func run(ctx context.Context, opts options) acr.Result {
	timeout, err := opts.array.TimeoutDuration()
	if err != nil {
		return acr.Result{OK: false, Message: err.Error()}
	}

	client, err := nimos.NewClient(nimos.Config{
		Endpoint:           opts.array.Endpoint,
		Username:           opts.array.Username,
		Password:           opts.array.Password,
		Timeout:            timeout,
		InsecureSkipVerify: opts.array.Insecure,
	}, log.Logger)
	if err != nil {
		return acr.Result{OK: false, Message: err.Error()}
	}

	rec := acr.NewReconciler(client, log.Logger)
	start := time.Now()
	res := rec.Reconcile(ctx, opts.state, opts.spec)
	observability.RecordReconcile(string(opts.state), string(res.Outcome()), time.Since(start))
	return res
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
